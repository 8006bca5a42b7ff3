package i18n_test

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-farmform/pkg/i18n"
)

func TestDefaultCatalog_LocalesShareKeys(t *testing.T) {
	catalog, err := i18n.Default()
	if err != nil {
		t.Fatalf("load default catalog: %v", err)
	}
	if diff := cmp.Diff([]string{"en", "es"}, catalog.Locales()); diff != "" {
		t.Fatalf("locales mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(catalog.Keys("es"), catalog.Keys("en")); diff != "" {
		t.Fatalf("en and es catalogs diverge (-es +en):\n%s", diff)
	}
}

func TestCatalog_TranslateInterpolatesNamedArgs(t *testing.T) {
	catalog := i18n.MustDefault()

	got, err := catalog.Translate("es", "formErrors.measurement.outOfRange", i18n.Args{"min": 0.5, "max": 10.0})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if want := "El valor debe estar entre 0.5 y 10."; got != want {
		t.Fatalf("unexpected message: want %q got %q", want, got)
	}

	got, err = catalog.Translate("en", "formErrors.required.null")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if want := "The field cannot be empty."; got != want {
		t.Fatalf("unexpected message: want %q got %q", want, got)
	}
}

func TestCatalog_LocaleFallbackChain(t *testing.T) {
	catalog := i18n.NewCatalog(i18n.WithFallbackLocale("en"))
	catalog.Set("en", "greeting", "Hello")
	catalog.Set("es", "farewell", "Adiós")

	tests := []struct {
		locale string
		key    string
		want   string
	}{
		{locale: "es-AR", key: "farewell", want: "Adiós"},
		{locale: "es_AR", key: "greeting", want: "Hello"},
		{locale: "fr", key: "greeting", want: "Hello"},
	}
	for _, tc := range tests {
		got, err := catalog.Translate(tc.locale, tc.key)
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.locale, tc.key, err)
		}
		if got != tc.want {
			t.Fatalf("%s/%s: want %q got %q", tc.locale, tc.key, tc.want, got)
		}
	}

	if _, err := catalog.Translate("es", "missing.key"); !errors.Is(err, i18n.ErrMissingTranslation) {
		t.Fatalf("expected ErrMissingTranslation, got %v", err)
	}
}

func TestCatalog_LoadFSFlattensNestedKeys(t *testing.T) {
	fsys := fstest.MapFS{
		"msgs/pt.yaml":   {Data: []byte("a:\n  b:\n    c: \"deep\"\n  n: 3\n")},
		"msgs/notes.txt": {Data: []byte("ignored")},
	}
	catalog := i18n.NewCatalog(i18n.WithFallbackLocale("pt"))
	if err := catalog.LoadFS(fsys, "msgs"); err != nil {
		t.Fatalf("load fs: %v", err)
	}
	if diff := cmp.Diff([]string{"a.b.c", "a.n"}, catalog.Keys("pt")); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_AddRejectsInvalidYAML(t *testing.T) {
	catalog := i18n.NewCatalog()
	err := catalog.Add("es", []byte("a: [unterminated"))
	if !errors.Is(err, i18n.ErrInvalidCatalog) {
		t.Fatalf("expected ErrInvalidCatalog, got %v", err)
	}
}

func TestLocalizer_MissingKeysFallBack(t *testing.T) {
	var calls []string
	loc := i18n.NewLocalizer(i18n.NewCatalog(), "es", i18n.WithMissingHandler(func(locale, key string, _ []any, err error) string {
		calls = append(calls, locale+":"+key)
		if !errors.Is(err, i18n.ErrMissingTranslation) {
			t.Fatalf("expected missing translation error, got %v", err)
		}
		return "fallback"
	}))

	if got := loc.T("does.not.exist"); got != "fallback" {
		t.Fatalf("expected handler result, got %q", got)
	}
	if diff := cmp.Diff([]string{"es:does.not.exist"}, calls); diff != "" {
		t.Fatalf("handler calls mismatch (-want +got):\n%s", diff)
	}

	bare := i18n.NewLocalizer(nil, "")
	if got := bare.T("labels.name"); got != "labels.name" {
		t.Fatalf("expected key without translator, got %q", got)
	}
	if got := bare.T("labels.name", i18n.Args{"default": "Name"}); got != "Name" {
		t.Fatalf("expected default arg, got %q", got)
	}

	var nilLocalizer *i18n.Localizer
	if got := nilLocalizer.T("x.y"); got != "x.y" {
		t.Fatalf("nil localizer should echo key, got %q", got)
	}
}

func TestLocalizer_WithLocale(t *testing.T) {
	es := i18n.DefaultLocalizer("es")
	en := es.WithLocale("en")

	if es.Locale() != "es" || en.Locale() != "en" {
		t.Fatalf("unexpected locales es=%q en=%q", es.Locale(), en.Locale())
	}
	if got := en.T("labels.pen"); got != "Pen" {
		t.Fatalf("expected english label, got %q", got)
	}
	if got := es.T("labels.pen"); got != "Corral" {
		t.Fatalf("expected spanish label, got %q", got)
	}
}
