package analysis

import (
	"reflect"
	"testing"
)

func TestRecord_Ready(t *testing.T) {
	f := &Features{}
	tests := []struct {
		rec  Record
		want bool
	}{
		{Record{Status: StatusSucceeded, Features: f}, true},
		{Record{Status: StatusSucceeded}, false},
		{Record{Status: StatusProcessing, Features: f}, false},
		{Record{Status: StatusFailed, Features: f}, false},
	}
	for _, tc := range tests {
		if got := tc.rec.Ready(); got != tc.want {
			t.Errorf("Ready(%+v) = %v, want %v", tc.rec, got, tc.want)
		}
	}
}

func TestFeatures_NamesSkipBlank(t *testing.T) {
	f := Features{Material: []Named{{Name: "PVC"}, {Name: " "}, {Name: " cotton "}}}
	if got := f.MaterialNames(); !reflect.DeepEqual(got, []string{"PVC", "cotton"}) {
		t.Errorf("MaterialNames = %v", got)
	}
	if got := f.ColorNames(); len(got) != 0 {
		t.Errorf("ColorNames = %v, want empty", got)
	}
}
