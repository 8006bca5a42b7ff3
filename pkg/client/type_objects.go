package client

import (
	"context"
	"net/http"

	"github.com/goliatone/go-farmform/pkg/model"
)

const prefixTypeOfObjects = "/type-of-objects"

// ListTypeOfObjects returns the types of object of the signed-in user.
func (c *Client) ListTypeOfObjects(ctx context.Context) ([]model.TypeOfObject, error) {
	var out []model.TypeOfObject
	err := c.do(ctx, call{method: http.MethodGet, template: "/type-of-objects", out: &out, cache: true})
	return out, err
}

// GetTypeOfObject fetches one type of object.
func (c *Client) GetTypeOfObject(ctx context.Context, id int) (model.TypeOfObject, error) {
	var out model.TypeOfObject
	err := c.do(ctx, call{method: http.MethodGet, template: "/type-of-objects/{id}", params: []any{id}, out: &out})
	return out, err
}

// CreateTypeOfObject creates a type of object.
func (c *Client) CreateTypeOfObject(ctx context.Context, t model.CreateTypeOfObject) (model.TypeOfObject, error) {
	var out model.TypeOfObject
	err := c.do(ctx, call{method: http.MethodPost, template: "/type-of-objects", body: t, out: &out, invalidate: []string{prefixTypeOfObjects}})
	return out, err
}

// UpdateTypeOfObject patches a type of object.
func (c *Client) UpdateTypeOfObject(ctx context.Context, id int, t model.CreateTypeOfObject) (model.TypeOfObject, error) {
	var out model.TypeOfObject
	err := c.do(ctx, call{method: http.MethodPatch, template: "/type-of-objects/{id}", params: []any{id}, body: t, out: &out, invalidate: []string{prefixTypeOfObjects, prefixVariables}})
	return out, err
}

// DeleteTypeOfObject removes a type of object.
func (c *Client) DeleteTypeOfObject(ctx context.Context, id int) error {
	return c.do(ctx, call{method: http.MethodDelete, template: "/type-of-objects/{id}", params: []any{id}, invalidate: []string{prefixTypeOfObjects, prefixVariables}})
}
