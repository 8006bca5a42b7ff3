package client

import (
	"context"

	"github.com/goliatone/go-farmform/pkg/model"
)

// CascadeLoader adapts a Client to the pen, type-of-object and variable
// option fetches of the selection cascade.
type CascadeLoader struct {
	Client *Client
}

// Pens lists the pens of a field.
func (l CascadeLoader) Pens(ctx context.Context, fieldID string) ([]model.Pen, error) {
	return l.Client.ListPens(ctx, fieldID)
}

// TypeOfObjects lists the types of object housed by a pen.
func (l CascadeLoader) TypeOfObjects(ctx context.Context, penID int) ([]model.TypeOfObject, error) {
	pen, err := l.Client.GetPen(ctx, penID)
	if err != nil {
		return nil, err
	}
	return pen.TypeOfObjects, nil
}

// Variables lists the variables attached to a type of object in a pen.
func (l CascadeLoader) Variables(ctx context.Context, penID, typeOfObjectID int) ([]model.PenVariable, error) {
	return l.Client.ListPenVariables(ctx, typeOfObjectID, penID)
}
