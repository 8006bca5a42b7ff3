// Package notice formats the transient texts shown by the terminal screens:
// submit outcome modals, the measurement review before sending, and the
// offline sync summary. Layout lives in pongo2 templates so the wording can be
// overridden without touching the screens.
package notice

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-farmform/pkg/form"
	"github.com/goliatone/go-farmform/pkg/i18n"
	"github.com/goliatone/go-farmform/pkg/offline"
)

//go:embed templates/*.tpl
var embedded embed.FS

// Template names.
const (
	TemplateModal  = "modal"
	TemplateReview = "review"
	TemplateSync   = "sync"
)

// Message ids used by the templates.
const (
	MsgTitleSuccess  = "notices.title.success"
	MsgTitleFailure  = "notices.title.failure"
	MsgTitleInfo     = "notices.title.info"
	MsgReviewHeader  = "notices.review.header"
	MsgReviewEmpty   = "notices.review.empty"
	MsgReviewConfirm = "notices.review.confirm"
	MsgSyncSummary   = "notices.sync.summary"
)

const extension = ".tpl"

// Renderer renders notices from a template set.
type Renderer struct {
	mu        sync.Mutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
	loc       *i18n.Localizer
}

// Option configures a Renderer.
type Option func(*rendererConfig)

type rendererConfig struct {
	loc      *i18n.Localizer
	override fs.FS
}

// WithLocalizer sets the localizer for titles and summaries.
func WithLocalizer(loc *i18n.Localizer) Option {
	return func(cfg *rendererConfig) {
		cfg.loc = loc
	}
}

// WithTemplates looks templates up in fsys before the embedded set.
func WithTemplates(fsys fs.FS) Option {
	return func(cfg *rendererConfig) {
		cfg.override = fsys
	}
}

// New builds a renderer over the embedded templates.
func New(opts ...Option) (*Renderer, error) {
	cfg := &rendererConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.loc == nil {
		cfg.loc = i18n.DefaultLocalizer(i18n.DefaultLocale)
	}

	builtin, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, fmt.Errorf("notice: open embedded templates: %w", err)
	}
	var loaders []pongo2.TemplateLoader
	if cfg.override != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.override))
	}
	loaders = append(loaders, pongo2.NewFSLoader(builtin))

	return &Renderer{
		set:       pongo2.NewSet("farmform-notice", loaders...),
		templates: make(map[string]*pongo2.Template),
		loc:       cfg.loc,
	}, nil
}

// Localizer returns the renderer's localizer.
func (r *Renderer) Localizer() *i18n.Localizer {
	return r.loc
}

// Render executes the named template with data.
func (r *Renderer) Render(name string, data map[string]any) (string, error) {
	tpl, err := r.template(name)
	if err != nil {
		return "", err
	}
	out, err := tpl.Execute(pongo2.Context(data))
	if err != nil {
		return "", fmt.Errorf("notice: execute %q: %w", name, err)
	}
	return strings.TrimRight(out, "\n"), nil
}

func (r *Renderer) template(name string) (*pongo2.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.templates[name]; ok {
		return tpl, nil
	}
	tpl, err := r.set.FromFile(name + extension)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownTemplate, name, err)
	}
	r.templates[name] = tpl
	return tpl, nil
}

// Modal renders a submit outcome. Field errors are listed by key.
func (r *Renderer) Modal(m form.Modal) (string, error) {
	keys := make([]string, 0, len(m.Fields))
	for key, msg := range m.Fields {
		if msg != "" && key != form.FormErrorKey {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	fields := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		fields = append(fields, map[string]any{"key": key, "message": m.Fields[key]})
	}
	return r.Render(TemplateModal, map[string]any{
		"kind":    string(m.Kind),
		"title":   r.title(m.Kind),
		"message": m.Message,
		"fields":  fields,
	})
}

func (r *Renderer) title(kind form.ModalKind) string {
	switch kind {
	case form.ModalSuccess:
		return r.loc.T(MsgTitleSuccess)
	case form.ModalFailure:
		return r.loc.T(MsgTitleFailure)
	default:
		return r.loc.T(MsgTitleInfo)
	}
}

// ReviewRow is one variable in the measurement review.
type ReviewRow struct {
	Name    string
	Value   string
	Warning string
}

// Review renders the values about to be sent, one row per variable.
func (r *Renderer) Review(rows []ReviewRow) (string, error) {
	width := 0
	data := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if n := utf8.RuneCountInString(row.Name); n > width {
			width = n
		}
		data = append(data, map[string]any{
			"name":    row.Name,
			"value":   row.Value,
			"warning": row.Warning,
		})
	}
	return r.Render(TemplateReview, map[string]any{
		"header": r.loc.T(MsgReviewHeader),
		"empty":  r.loc.T(MsgReviewEmpty),
		"rows":   data,
		"width":  width,
	})
}

// ReviewConfirm is the question asked after the review.
func (r *Renderer) ReviewConfirm(count int) string {
	return r.loc.T(MsgReviewConfirm, i18n.Args{"count": count})
}

// Sync renders an offline sync result, listing failed items by id.
func (r *Renderer) Sync(res offline.Result) (string, error) {
	ids := make([]string, 0, len(res.Errors))
	for id := range res.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	failures := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		failures = append(failures, map[string]any{"id": id, "message": errorText(res.Errors[id])})
	}
	return r.Render(TemplateSync, map[string]any{
		"summary": r.loc.T(MsgSyncSummary, i18n.Args{
			"processed": res.Processed,
			"postponed": res.Postponed,
			"failed":    res.Failed,
		}),
		"errors": failures,
	})
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
