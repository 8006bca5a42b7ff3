// Package apispec embeds the OpenAPI description of the farm backend. It
// lists the routes for the CLI and validates outgoing request bodies before
// the client sends them.
package apispec

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var embedded []byte

// Operation is one documented route.
type Operation struct {
	ID      string
	Method  string
	Path    string
	Summary string
	Tags    []string
	Public  bool
	HasBody bool
}

// Spec wraps a loaded and validated document.
type Spec struct {
	doc *openapi3.T
}

var (
	defaultOnce sync.Once
	defaultSpec *Spec
	defaultErr  error
)

// Default returns the embedded document, loaded once.
func Default() (*Spec, error) {
	defaultOnce.Do(func() {
		defaultSpec, defaultErr = LoadData(context.Background(), embedded)
	})
	return defaultSpec, defaultErr
}

// Embedded returns a copy of the embedded document bytes.
func Embedded() []byte {
	return append([]byte(nil), embedded...)
}

// LoadFile loads a document from disk.
func LoadFile(ctx context.Context, path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("apispec: read %s: %w", path, err)
	}
	return LoadData(ctx, raw)
}

// LoadData parses and validates a YAML or JSON document.
func LoadData(ctx context.Context, raw []byte) (*Spec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("apispec: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("apispec: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("apispec: validate: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, ErrEmptyDocument
	}
	return &Spec{doc: doc}, nil
}

// Title returns the document title and version.
func (s *Spec) Title() string {
	if s == nil || s.doc == nil || s.doc.Info == nil {
		return ""
	}
	return strings.TrimSpace(s.doc.Info.Title + " " + s.doc.Info.Version)
}

var methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// Operations lists the documented routes ordered by path then method.
func (s *Spec) Operations() []Operation {
	if s == nil || s.doc == nil || s.doc.Paths == nil {
		return nil
	}
	var out []Operation
	for path, item := range s.doc.Paths.Map() {
		if item == nil {
			continue
		}
		for _, method := range methods {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			out = append(out, Operation{
				ID:      op.OperationID,
				Method:  method,
				Path:    path,
				Summary: op.Summary,
				Tags:    append([]string(nil), op.Tags...),
				Public:  op.Security != nil && len(*op.Security) == 0,
				HasBody: op.RequestBody != nil,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return methodRank(out[i].Method) < methodRank(out[j].Method)
	})
	return out
}

func methodRank(method string) int {
	for i, m := range methods {
		if m == method {
			return i
		}
	}
	return len(methods)
}

// Operation looks up a route by method and path template.
func (s *Spec) Operation(method, template string) (Operation, bool) {
	for _, op := range s.Operations() {
		if op.Method == strings.ToUpper(method) && op.Path == template {
			return op, true
		}
	}
	return Operation{}, false
}

// CheckRequest validates body against the request schema of the operation
// at method and template. It implements client.Contract.
func (s *Spec) CheckRequest(method, template string, body []byte) error {
	if s == nil || s.doc == nil || s.doc.Paths == nil {
		return ErrUnknownOperation
	}
	item := s.doc.Paths.Value(template)
	if item == nil {
		return fmt.Errorf("%w: %s %s", ErrUnknownOperation, method, template)
	}
	op := item.GetOperation(strings.ToUpper(method))
	if op == nil {
		return fmt.Errorf("%w: %s %s", ErrUnknownOperation, method, template)
	}
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	reqBody := op.RequestBody.Value
	if len(bytes.TrimSpace(body)) == 0 {
		if reqBody.Required {
			return fmt.Errorf("%w: %s %s: body is required", ErrInvalidBody, method, template)
		}
		return nil
	}
	media := reqBody.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidBody, method, template, err)
	}
	if err := media.Schema.Value.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidBody, method, template, err)
	}
	return nil
}
