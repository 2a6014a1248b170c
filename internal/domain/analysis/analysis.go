// Package analysis models the upstream product-analysis record the compliance
// pipeline consumes. The analysis itself is produced elsewhere.
package analysis

import "strings"

// Status is the state of the upstream feature-extraction step.
type Status string

// Analysis states.
const (
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Named is a single named attribute (color, material, style).
type Named struct {
	Name string `json:"name"`
}

// Shape holds the product's shape classification.
type Shape struct {
	Category string `json:"category"`
}

// Features are the structured product features extracted from an image.
type Features struct {
	Shape    Shape   `json:"shape"`
	Colors   []Named `json:"colors"`
	Material []Named `json:"material"`
	Style    []Named `json:"style"`
}

// Record is an upstream analysis looked up by request ID.
type Record struct {
	RequestID string    `json:"requestId"`
	Status    Status    `json:"status"`
	Features  *Features `json:"features,omitempty"`
}

// Ready reports whether feature extraction succeeded and features are present.
func (r Record) Ready() bool {
	return r.Status == StatusSucceeded && r.Features != nil
}

// ColorNames returns the non-blank color names in order.
func (f Features) ColorNames() []string { return names(f.Colors) }

// MaterialNames returns the non-blank material names in order.
func (f Features) MaterialNames() []string { return names(f.Material) }

// StyleNames returns the non-blank style names in order.
func (f Features) StyleNames() []string { return names(f.Style) }

func names(items []Named) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if n := strings.TrimSpace(it.Name); n != "" {
			out = append(out, n)
		}
	}
	return out
}
