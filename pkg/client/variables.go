package client

import (
	"context"
	"net/http"

	"github.com/goliatone/go-farmform/pkg/model"
)

const prefixVariables = "/variables/"

// ListVariables returns the variables owned by userID.
func (c *Client) ListVariables(ctx context.Context, userID string) ([]model.Variable, error) {
	var out []model.Variable
	err := c.do(ctx, call{method: http.MethodGet, template: "/variables/byUser/{id}", params: []any{userID}, out: &out, cache: true})
	return out, err
}

// ListVariablesByTypeOfObject returns the variables linked to a type of object.
func (c *Client) ListVariablesByTypeOfObject(ctx context.Context, typeOfObjectID int) ([]model.Variable, error) {
	var out []model.Variable
	err := c.do(ctx, call{method: http.MethodGet, template: "/variables/byObjectId/{id}", params: []any{typeOfObjectID}, out: &out, cache: true})
	return out, err
}

// GetVariable fetches one variable.
func (c *Client) GetVariable(ctx context.Context, id int) (model.Variable, error) {
	var out model.Variable
	err := c.do(ctx, call{method: http.MethodGet, template: "/variables/{id}", params: []any{id}, out: &out})
	return out, err
}

// CreateVariable creates a variable owned by userID.
func (c *Client) CreateVariable(ctx context.Context, userID string, v model.CreateVariable) (model.Variable, error) {
	var out model.Variable
	err := c.do(ctx, call{method: http.MethodPost, template: "/variables/{id}", params: []any{userID}, body: v, out: &out, invalidate: []string{prefixVariables, prefixTypeOfObjects}})
	return out, err
}

// UpdateVariable patches a variable.
func (c *Client) UpdateVariable(ctx context.Context, id int, v model.CreateVariable) (model.Variable, error) {
	var out model.Variable
	err := c.do(ctx, call{method: http.MethodPatch, template: "/variables/{id}", params: []any{id}, body: v, out: &out, invalidate: []string{prefixVariables, prefixTypeOfObjects, prefixPenVariables}})
	return out, err
}

// DeleteVariable removes a variable.
func (c *Client) DeleteVariable(ctx context.Context, id int) error {
	return c.do(ctx, call{method: http.MethodDelete, template: "/variables/{id}", params: []any{id}, invalidate: []string{prefixVariables, prefixPenVariables}})
}
