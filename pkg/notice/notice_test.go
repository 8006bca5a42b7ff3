package notice_test

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-farmform/pkg/form"
	"github.com/goliatone/go-farmform/pkg/i18n"
	"github.com/goliatone/go-farmform/pkg/notice"
	"github.com/goliatone/go-farmform/pkg/offline"
)

func newRenderer(t *testing.T, opts ...notice.Option) *notice.Renderer {
	t.Helper()
	opts = append([]notice.Option{notice.WithLocalizer(i18n.DefaultLocalizer("en"))}, opts...)
	r, err := notice.New(opts...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func TestModalListsFieldErrorsInKeyOrder(t *testing.T) {
	r := newRenderer(t)
	got, err := r.Modal(form.Modal{
		Kind:    form.ModalFailure,
		Message: "Check the highlighted fields before continuing.",
		Fields: map[string]string{
			"name":            "The field cannot be empty.",
			"defaultValue":    "The minimum cannot be greater than the maximum.",
			form.FormErrorKey: "ignored",
		},
	})
	if err != nil {
		t.Fatalf("modal: %v", err)
	}
	if !strings.HasPrefix(got, "[Error] Check the highlighted fields") {
		t.Fatalf("unexpected heading: %q", got)
	}
	first := strings.Index(got, "defaultValue:")
	second := strings.Index(got, "name:")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("expected sorted field list, got %q", got)
	}
	if strings.Contains(got, "ignored") {
		t.Fatalf("form level error should not be listed: %q", got)
	}
}

func TestModalDoesNotEscapeText(t *testing.T) {
	r := newRenderer(t)
	got, err := r.Modal(form.Modal{Kind: form.ModalSuccess, Message: `Saved "North" & <pen>`})
	if err != nil {
		t.Fatalf("modal: %v", err)
	}
	if got != `[Done] Saved "North" & <pen>` {
		t.Fatalf("unexpected modal text: %q", got)
	}
}

func TestReviewMarksEmptyValuesAndWarnings(t *testing.T) {
	r := newRenderer(t)
	got, err := r.Review([]notice.ReviewRow{
		{Name: "Weight", Value: "420"},
		{Name: "Colour", Warning: "Incomplete field. Continue anyway?"},
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two rows, got %q", got)
	}
	if lines[0] != "Measurements to send" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "Weight") || !strings.Contains(lines[1], "420") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[2], "(empty)") || !strings.Contains(lines[2], "Incomplete field") {
		t.Fatalf("unexpected second row %q", lines[2])
	}
	if want := "Send 2 measurements?"; r.ReviewConfirm(2) != want {
		t.Fatalf("want %q got %q", want, r.ReviewConfirm(2))
	}
}

func TestSyncSummary(t *testing.T) {
	r := newRenderer(t)
	got, err := r.Sync(offline.Result{
		Processed: 3,
		Postponed: 1,
		Failed:    1,
		Errors:    map[string]error{"q-7": errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.HasPrefix(got, "3 sent, 1 pending, 1 failed.") {
		t.Fatalf("unexpected summary %q", got)
	}
	if !strings.Contains(got, "q-7: boom") {
		t.Fatalf("expected failed item listed, got %q", got)
	}
}

func TestTemplatesCanBeOverridden(t *testing.T) {
	r := newRenderer(t, notice.WithTemplates(fstest.MapFS{
		"sync.tpl": {Data: []byte("synced {{ summary }}")},
	}))
	got, err := r.Sync(offline.Result{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got != "synced 0 sent, 0 pending, 0 failed." {
		t.Fatalf("unexpected override output %q", got)
	}
	if _, err := r.Modal(form.Modal{Kind: form.ModalInfo, Message: "hi"}); err != nil {
		t.Fatalf("embedded template should still resolve: %v", err)
	}
	if _, err := r.Render("missing", nil); !errors.Is(err, notice.ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
}
