// Package genai holds the generateContent request and response envelopes
// exchanged with the text-generation backend.
package genai

import (
	"errors"
	"strings"
)

// ErrEmptyResponse signals an envelope without candidates[0].content.parts[].text.
var ErrEmptyResponse = errors.New("response has no text candidate")

// Part is a single content fragment.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Content is a role-tagged list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig carries sampling parameters and the response-format hint.
type GenerationConfig struct {
	Temperature      *float32 `json:"temperature,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
}

// Request is a generateContent request body.
type Request struct {
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Contents          []Content         `json:"contents"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Candidate is one generated alternative.
type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

// UsageMetadata reports token usage for a call.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Response is a generateContent response body.
type Response struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// Text concatenates the text parts of the first candidate.
func (r *Response) Text() (string, error) {
	if r == nil || len(r.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	c := r.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range c.Parts {
		b.WriteString(p.Text)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

// NewTextRequest builds a single-turn request with a system instruction.
func NewTextRequest(system, user string, temperature float32, mimeType string) *Request {
	t := temperature
	req := &Request{
		Contents:         []Content{{Role: "user", Parts: []Part{{Text: user}}}},
		GenerationConfig: &GenerationConfig{Temperature: &t, ResponseMIMEType: mimeType},
	}
	if system != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: system}}}
	}
	return req
}
