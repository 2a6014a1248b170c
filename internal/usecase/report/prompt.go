package report

import (
	"fmt"
	"strings"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/analysis"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/market"
)

const systemPrompt = `You are a toy export compliance analyst. Using ONLY the regulatory excerpts supplied by the user, produce a compliance report for the described product and target market.

Rules:
- Only reference standards genuinely supported by the provided excerpts. Do not cite standards that are absent from them.
- Do not fabricate material findings for materials not present in the input.
- Every finding must name the standard it comes from.
- Output JSON only, no markdown fences, no commentary.

Output exactly this JSON shape:
{
  "applicableStandards": [
    {"standardId": "string", "standardName": "string", "mandatory": true, "relevance": "string"}
  ],
  "materialFindings": [
    {"material": "string", "concern": "string", "requirement": "string", "sourceStandard": "string"}
  ],
  "ageGrading": {"recommendedAge": "string", "reason": "string", "requiredWarnings": ["string"]},
  "labelRequirements": [
    {"item": "string", "detail": "string", "mandatory": true}
  ],
  "certificationPath": [
    {"step": "string", "description": "string"}
  ],
  "summary": "string"
}

applicableStandards and certificationPath must contain at least one entry.`

// BuildPrompt returns the system and user prompts for one generation.
// Excerpts are labelled [1]..[n] in the order given.
func BuildPrompt(features analysis.Features, m market.Market, excerpts []string) (string, string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Target market: %s\n\n", m)
	b.WriteString("Product features:\n")
	fmt.Fprintf(&b, "- Shape: %s\n", orNone(strings.TrimSpace(features.Shape.Category)))
	fmt.Fprintf(&b, "- Colors: %s\n", orNone(strings.Join(features.ColorNames(), ", ")))
	fmt.Fprintf(&b, "- Materials: %s\n", orNone(strings.Join(features.MaterialNames(), ", ")))
	fmt.Fprintf(&b, "- Style: %s\n", orNone(strings.Join(features.StyleNames(), ", ")))

	b.WriteString("\nRegulatory excerpts:\n")
	if len(excerpts) == 0 {
		b.WriteString("(none retrieved)\n")
	}
	for i, text := range excerpts {
		fmt.Fprintf(&b, "\n[%d]\n%s\n", i+1, strings.TrimSpace(text))
	}

	b.WriteString("\nReturn the compliance report JSON.")
	return systemPrompt, b.String()
}

func orNone(s string) string {
	if s == "" {
		return "unspecified"
	}
	return s
}
