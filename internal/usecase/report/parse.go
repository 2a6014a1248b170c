package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	domreport "github.com/bbbkawaii/toyclaw-sub000/internal/domain/report"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

var errNoJSON = errors.New("no JSON object found")

// Parse extracts a report from raw model text and validates it.
// Extraction order: the whole text, then the first fenced code block,
// then the span from the first '{' to the last '}'.
// Any failure wraps domain.ErrModelOutputInvalid.
func Parse(text string) (*domreport.Report, error) {
	r, err := extract(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrModelOutputInvalid, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrModelOutputInvalid, err)
	}
	return r, nil
}

func extract(text string) (*domreport.Report, error) {
	trimmed := strings.TrimSpace(text)

	r, err := decode(trimmed)
	if err == nil {
		return r, nil
	}

	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		if r, ferr := decode(strings.TrimSpace(m[1])); ferr == nil {
			return r, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, errNoJSON
	}
	r, err = decode(trimmed[start : end+1])
	if err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}

func decode(s string) (*domreport.Report, error) {
	var r domreport.Report
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
