// Package report defines the structured compliance report and its schema.
package report

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Report is the validated compliance report produced for one product and market.
type Report struct {
	ApplicableStandards []Standard          `json:"applicableStandards" validate:"required,min=1,dive"`
	MaterialFindings    []MaterialFinding   `json:"materialFindings" validate:"dive"`
	AgeGrading          *AgeGrading         `json:"ageGrading" validate:"required"`
	LabelRequirements   []LabelRequirement  `json:"labelRequirements" validate:"dive"`
	CertificationPath   []CertificationStep `json:"certificationPath" validate:"required,min=1,dive"`
	Summary             string              `json:"summary" validate:"nonblank"`
}

// Standard is a regulation or standard that applies to the product.
type Standard struct {
	StandardID   string `json:"standardId" validate:"nonblank"`
	StandardName string `json:"standardName" validate:"nonblank"`
	Mandatory    bool   `json:"mandatory"`
	Relevance    string `json:"relevance" validate:"nonblank"`
}

// MaterialFinding is a material-specific concern and the requirement addressing it.
type MaterialFinding struct {
	Material       string `json:"material" validate:"nonblank"`
	Concern        string `json:"concern" validate:"nonblank"`
	Requirement    string `json:"requirement" validate:"nonblank"`
	SourceStandard string `json:"sourceStandard" validate:"nonblank"`
}

// AgeGrading is the recommended age band and the warnings it implies.
type AgeGrading struct {
	RecommendedAge   string   `json:"recommendedAge" validate:"nonblank"`
	Reason           string   `json:"reason" validate:"nonblank"`
	RequiredWarnings []string `json:"requiredWarnings" validate:"dive,nonblank"`
}

// LabelRequirement is a labeling obligation.
type LabelRequirement struct {
	Item      string `json:"item" validate:"nonblank"`
	Detail    string `json:"detail" validate:"nonblank"`
	Mandatory bool   `json:"mandatory"`
}

// CertificationStep is one step on the route to market.
type CertificationStep struct {
	Step        string `json:"step" validate:"nonblank"`
	Description string `json:"description" validate:"nonblank"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// nonblank: present and not only whitespace.
	if err := v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks r against the report schema and returns a readable
// list of violations keyed by JSON path.
func (r *Report) Validate() error {
	if r == nil {
		return errors.New("report is nil")
	}
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate report: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Report.")
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", path, fe.Tag()))
	}
	return fmt.Errorf("invalid report: %s", strings.Join(msgs, "; "))
}
