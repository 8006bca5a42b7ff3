package client

import (
	"context"
	"net/http"

	"github.com/goliatone/go-farmform/pkg/model"
)

const prefixPens = "/pens/"

// ListPens returns the pens of a field.
func (c *Client) ListPens(ctx context.Context, fieldID string) ([]model.Pen, error) {
	var out []model.Pen
	err := c.do(ctx, call{method: http.MethodGet, template: "/pens/byField/{fieldId}", params: []any{fieldID}, out: &out, cache: true})
	return out, err
}

// GetPen fetches one pen with its type-of-objects.
func (c *Client) GetPen(ctx context.Context, id int) (model.Pen, error) {
	var out model.Pen
	err := c.do(ctx, call{method: http.MethodGet, template: "/pens/{id}", params: []any{id}, out: &out, cache: true})
	return out, err
}

// CreatePen creates a pen in a field.
func (c *Client) CreatePen(ctx context.Context, pen model.CreatePen) (model.Pen, error) {
	var out model.Pen
	err := c.do(ctx, call{method: http.MethodPost, template: "/pens", body: pen, out: &out, invalidate: []string{prefixPens}})
	return out, err
}

// UpdatePen patches a pen.
func (c *Client) UpdatePen(ctx context.Context, id int, pen model.CreatePen) (model.Pen, error) {
	var out model.Pen
	err := c.do(ctx, call{method: http.MethodPatch, template: "/pens/{id}", params: []any{id}, body: pen, out: &out, invalidate: []string{prefixPens}})
	return out, err
}

// DeletePen removes a pen.
func (c *Client) DeletePen(ctx context.Context, id int) error {
	return c.do(ctx, call{method: http.MethodDelete, template: "/pens/{id}", params: []any{id}, invalidate: []string{prefixPens, prefixPenVariables}})
}
