package form_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-farmform/pkg/form"
)

func TestValues_SetAndGetNestedPaths(t *testing.T) {
	values := form.Values{}
	if err := values.Set("defaultValue.max", 10.0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := values.Set("categories", []any{"Alto", "Bajo"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := values.Set("categories.1", "Medio"); err != nil {
		t.Fatalf("set index: %v", err)
	}

	want := form.Values{
		"defaultValue": map[string]any{"max": 10.0},
		"categories":   []any{"Alto", "Medio"},
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if got, ok := values.Get("categories.0"); !ok || got != "Alto" {
		t.Fatalf("unexpected index lookup %v %v", got, ok)
	}
	if _, ok := values.Get("defaultValue.min"); ok {
		t.Fatalf("expected missing path")
	}
	if err := values.Set("defaultValue..min", 1); !errors.Is(err, form.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	if err := values.Set("defaultValue.max.deeper", 1); !errors.Is(err, form.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath crossing a scalar, got %v", err)
	}
}

func TestValues_TypedAccessors(t *testing.T) {
	values := form.Values{
		"a":    "2,5",
		"b":    "",
		"c":    "abc",
		"d":    4,
		"tags": []any{"x", "y"},
		"ids":  []any{1.0, 2},
	}
	if got := values.Float("a"); got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}
	if got := values.Float("b"); !math.IsNaN(got) {
		t.Fatalf("expected NaN for empty input, got %v", got)
	}
	if got := values.Float("c"); !math.IsNaN(got) {
		t.Fatalf("expected NaN for text, got %v", got)
	}
	if got := values.Float("d"); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}
	if got := values.Float("missing"); got != 0 {
		t.Fatalf("expected 0 for missing, got %v", got)
	}
	if diff := cmp.Diff([]string{"x", "y"}, values.Strings("tags")); diff != "" {
		t.Fatalf("strings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2}, values.Ints("ids")); diff != "" {
		t.Fatalf("ints mismatch (-want +got):\n%s", diff)
	}
}

func TestValues_CloneIsDeep(t *testing.T) {
	original := form.Values{"nested": map[string]any{"k": "v"}}
	clone := original.Clone()
	if err := clone.Set("nested.k", "changed"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if original.String("nested.k") != "v" {
		t.Fatalf("clone shares nested maps")
	}
}
