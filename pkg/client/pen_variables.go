package client

import (
	"context"
	"net/http"

	"github.com/goliatone/go-farmform/pkg/model"
)

const prefixPenVariables = "/pens-variables-type-of-objects/"

// ListPenVariables returns the variables attached to a type of object in a pen
// together with their custom parameters.
func (c *Client) ListPenVariables(ctx context.Context, typeOfObjectID, penID int) ([]model.PenVariable, error) {
	var out []model.PenVariable
	err := c.do(ctx, call{
		method:   http.MethodGet,
		template: "/pens-variables-type-of-objects/type-of-object/{typeOfObjectId}/{penId}",
		params:   []any{typeOfObjectID, penID},
		out:      &out,
		cache:    true,
	})
	return out, err
}

// CreatePenVariable attaches a variable to a type of object in a pen.
func (c *Client) CreatePenVariable(ctx context.Context, pv model.CreatePenVariable) (model.PenVariable, error) {
	var out model.PenVariable
	err := c.do(ctx, call{method: http.MethodPost, template: "/pens-variables-type-of-objects", body: pv, out: &out, invalidate: []string{prefixPenVariables}})
	return out, err
}

// UpdatePenVariable replaces the custom parameters of a pen variable.
func (c *Client) UpdatePenVariable(ctx context.Context, penID, variableID, typeOfObjectID int, params model.FormValue) (model.PenVariable, error) {
	var out model.PenVariable
	err := c.do(ctx, call{
		method:     http.MethodPatch,
		template:   "/pens-variables-type-of-objects/{penId}/{variableId}/{typeOfObjectId}",
		params:     []any{penID, variableID, typeOfObjectID},
		body:       model.CreatePenVariable{CustomParameters: params},
		out:        &out,
		invalidate: []string{prefixPenVariables},
	})
	return out, err
}

// DeletePenVariable detaches a variable.
func (c *Client) DeletePenVariable(ctx context.Context, penID, variableID, typeOfObjectID int) error {
	return c.do(ctx, call{
		method:     http.MethodDelete,
		template:   "/pens-variables-type-of-objects/{penId}/{variableId}/{typeOfObjectId}",
		params:     []any{penID, variableID, typeOfObjectID},
		invalidate: []string{prefixPenVariables},
	})
}
