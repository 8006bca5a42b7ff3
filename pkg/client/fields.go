package client

import (
	"context"
	"net/http"

	"github.com/goliatone/go-farmform/pkg/model"
)

const prefixFields = "/fields/"

// ListFields returns the fields owned by userID.
func (c *Client) ListFields(ctx context.Context, userID string) ([]model.Field, error) {
	var out []model.Field
	err := c.do(ctx, call{method: http.MethodGet, template: "/fields/byUserId/{id}", params: []any{userID}, out: &out, cache: true})
	return out, err
}

// GetField fetches one field.
func (c *Client) GetField(ctx context.Context, id string) (model.Field, error) {
	var out model.Field
	err := c.do(ctx, call{method: http.MethodGet, template: "/fields/{id}", params: []any{id}, out: &out})
	return out, err
}

// CreateField creates a field.
func (c *Client) CreateField(ctx context.Context, field model.Field) (model.Field, error) {
	var out model.Field
	err := c.do(ctx, call{method: http.MethodPost, template: "/fields", body: field, out: &out, invalidate: []string{prefixFields}})
	return out, err
}

// UpdateField patches a field.
func (c *Client) UpdateField(ctx context.Context, id string, field model.Field) (model.Field, error) {
	var out model.Field
	err := c.do(ctx, call{method: http.MethodPatch, template: "/fields/{id}", params: []any{id}, body: field, out: &out, invalidate: []string{prefixFields}})
	return out, err
}

// DeleteField removes a field.
func (c *Client) DeleteField(ctx context.Context, id string) error {
	return c.do(ctx, call{method: http.MethodDelete, template: "/fields/{id}", params: []any{id}, invalidate: []string{prefixFields, prefixPens, prefixReports}})
}
