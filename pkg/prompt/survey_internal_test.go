package prompt

import (
	"testing"

	"github.com/AlecAivazis/survey/v2/core"
	"github.com/google/go-cmp/cmp"
)

// Pens of different fields may share a name; the picked position must survive.
func TestSurveyAnswersKeepDuplicateLabelsApart(t *testing.T) {
	var one int
	if err := core.WriteAnswer(&one, "", core.OptionAnswer{Value: "Norte", Index: 2}); err != nil {
		t.Fatalf("write select answer: %v", err)
	}
	if one != 2 {
		t.Fatalf("select answer = %d, want 2", one)
	}

	var many []int
	answers := []core.OptionAnswer{{Value: "Norte", Index: 0}, {Value: "Norte", Index: 2}}
	if err := core.WriteAnswer(&many, "", answers); err != nil {
		t.Fatalf("write multiselect answer: %v", err)
	}
	if diff := cmp.Diff([]int{0, 2}, many); diff != "" {
		t.Fatalf("multiselect answer mismatch (-want +got):\n%s", diff)
	}
}

func TestValidIndicesDropsOutOfRange(t *testing.T) {
	got := validIndices(3, []int{-1, 0, 2, 3, 7})
	if diff := cmp.Diff([]int{0, 2}, got); diff != "" {
		t.Fatalf("indices mismatch (-want +got):\n%s", diff)
	}
	if got := validIndices(0, []int{0}); got != nil {
		t.Fatalf("expected no indices for empty options, got %v", got)
	}
}
