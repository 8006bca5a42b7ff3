package client

import (
	"context"
	"net/http"

	"github.com/goliatone/go-farmform/pkg/model"
)

const prefixReports = "/reports/"

// ListReports returns the reports of a field.
func (c *Client) ListReports(ctx context.Context, fieldID string) ([]model.Report, error) {
	var out []model.Report
	err := c.do(ctx, call{method: http.MethodGet, template: "/reports/byField/{fieldId}", params: []any{fieldID}, out: &out, cache: true})
	return out, err
}

// GetReport fetches one report with its measurements.
func (c *Client) GetReport(ctx context.Context, id int) (model.Report, error) {
	var out model.Report
	err := c.do(ctx, call{method: http.MethodGet, template: "/reports/{id}", params: []any{id}, out: &out})
	return out, err
}

// CreateReport creates a report on a field. When the backend is unreachable
// and a queue is configured the creation is persisted and a *QueuedError
// carrying a temporary id is returned; see QueuedTempID.
func (c *Client) CreateReport(ctx context.Context, fieldID string, report model.CreateReport) (model.Report, error) {
	var out model.Report
	err := c.do(ctx, call{
		method:     http.MethodPost,
		template:   "/reports/byFieldId/{fieldId}",
		params:     []any{fieldID},
		body:       model.ReportEnvelope{Report: report},
		out:        &out,
		invalidate: []string{prefixReports},
		entity:     EntityReports,
		tempID:     TempIDPrefix + c.newID(),
	})
	return out, err
}

// UpdateReport patches the name and comment of a report.
func (c *Client) UpdateReport(ctx context.Context, id int, report model.CreateReport) (model.Report, error) {
	var out model.Report
	err := c.do(ctx, call{
		method:     http.MethodPatch,
		template:   "/reports/{id}",
		params:     []any{id},
		body:       model.ReportEnvelope{Report: report},
		out:        &out,
		invalidate: []string{prefixReports},
	})
	return out, err
}

// DeleteReport removes a report and its measurements.
func (c *Client) DeleteReport(ctx context.Context, id int) error {
	return c.do(ctx, call{method: http.MethodDelete, template: "/reports/{id}", params: []any{id}, invalidate: []string{prefixReports, prefixMeasurements}})
}
