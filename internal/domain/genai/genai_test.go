package genai

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestResponse_Text(t *testing.T) {
	raw := `{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`
	var r Response
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := r.Text()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"a":1}` {
		t.Errorf("Text = %q", got)
	}
}

func TestResponse_TextMissing(t *testing.T) {
	cases := map[string]string{
		"no candidates": `{"candidates":[]}`,
		"no content":    `{"candidates":[{"finishReason":"SAFETY"}]}`,
		"no parts":      `{"candidates":[{"content":{"parts":[]}}]}`,
		"blank text":    `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var r Response
			if err := json.Unmarshal([]byte(raw), &r); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if _, err := r.Text(); !errors.Is(err, ErrEmptyResponse) {
				t.Errorf("expected ErrEmptyResponse, got %v", err)
			}
		})
	}
	var nilResp *Response
	if _, err := nilResp.Text(); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("nil response: expected ErrEmptyResponse, got %v", err)
	}
}

func TestNewTextRequest(t *testing.T) {
	req := NewTextRequest("sys", "user", 0.2, "application/json")
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cfg := back["generationConfig"].(map[string]any)
	if cfg["responseMimeType"] != "application/json" {
		t.Errorf("responseMimeType = %v", cfg["responseMimeType"])
	}
	if _, ok := back["systemInstruction"]; !ok {
		t.Error("systemInstruction missing")
	}
	if NewTextRequest("", "u", 0, "").SystemInstruction != nil {
		t.Error("empty system prompt should omit systemInstruction")
	}
}
