package assessment

import (
	"testing"
	"time"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/market"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/report"
)

func sampleReport() report.Report {
	return report.Report{
		ApplicableStandards: []report.Standard{{StandardID: "EN 71-1", StandardName: "Mechanical", Relevance: "all"}},
		AgeGrading:          &report.AgeGrading{RecommendedAge: "3+", Reason: "small parts"},
		CertificationPath:   []report.CertificationStep{{Step: "CE", Description: "Declaration of conformity"}},
		Summary:             "CE marking required.",
	}
}

func TestNew(t *testing.T) {
	ids := []string{"EUROPE/en71.pdf#0"}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CST", 8*3600))
	a, err := New("a1", "r1", market.Europe, sampleReport(), ids, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids[0] = "mutated"
	if a.RetrievedChunkIDs()[0] != "EUROPE/en71.pdf#0" {
		t.Error("chunk IDs must be copied")
	}
	if a.Summary() != "CE marking required." {
		t.Errorf("Summary = %q", a.Summary())
	}
	if a.CreatedAt().Location() != time.UTC {
		t.Error("CreatedAt should be UTC")
	}
}

func TestNew_Rejects(t *testing.T) {
	bad := sampleReport()
	bad.CertificationPath = nil
	if _, err := New("a1", "r1", market.US, bad, nil, time.Now()); err == nil {
		t.Error("expected error for invalid report")
	}
	if _, err := New("", "r1", market.US, sampleReport(), nil, time.Now()); err == nil {
		t.Error("expected error for empty ID")
	}
	if _, err := New("a1", "", market.US, sampleReport(), nil, time.Now()); err == nil {
		t.Error("expected error for empty request ID")
	}
}
