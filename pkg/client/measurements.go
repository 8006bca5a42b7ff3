package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-farmform/pkg/model"
)

const prefixMeasurements = "/measurements/"

// CreateMeasurements posts a batch of measurements. Transport failures are
// queued when a queue is configured.
func (c *Client) CreateMeasurements(ctx context.Context, batch model.MeasurementBatch) ([]model.Measurement, error) {
	if len(batch.Measurements) == 0 {
		return nil, fmt.Errorf("client: measurement batch is empty")
	}
	var out []model.Measurement
	err := c.do(ctx, call{
		method:     http.MethodPost,
		template:   "/measurements",
		body:       batch,
		out:        &out,
		invalidate: []string{prefixMeasurements, prefixReports},
		entity:     EntityMeasurements,
	})
	return out, err
}

// QueueMeasurementsForReport enqueues a batch that belongs to a report still
// waiting in the queue. Every report_id of the batch is set to tempID so the
// sync can remap it once the report exists on the server.
func (c *Client) QueueMeasurementsForReport(ctx context.Context, tempID string, batch model.MeasurementBatch) (QueuedRequest, error) {
	if c.queue == nil {
		return QueuedRequest{}, fmt.Errorf("client: no offline queue configured")
	}
	if !strings.HasPrefix(tempID, TempIDPrefix) {
		return QueuedRequest{}, fmt.Errorf("client: %q is not a temporary id", tempID)
	}
	if len(batch.Measurements) == 0 {
		return QueuedRequest{}, fmt.Errorf("client: measurement batch is empty")
	}

	raw, err := json.Marshal(batch)
	if err != nil {
		return QueuedRequest{}, fmt.Errorf("client: encode measurements: %w", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return QueuedRequest{}, fmt.Errorf("client: encode measurements: %w", err)
	}
	if items, ok := body["measurements"].([]any); ok {
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				m["report_id"] = tempID
			}
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return QueuedRequest{}, fmt.Errorf("client: encode measurements: %w", err)
	}

	item := QueuedRequest{
		ID:        c.newID(),
		Method:    http.MethodPost,
		Path:      "/measurements",
		Body:      payload,
		Entity:    EntityMeasurements,
		UserID:    c.userID(ctx),
		CreatedAt: c.now().UTC(),
	}
	if err := c.queue.Enqueue(ctx, item); err != nil {
		return QueuedRequest{}, fmt.Errorf("client: enqueue: %w", err)
	}
	return item, nil
}

// MeasurementStats aggregates the measurements of a field.
func (c *Client) MeasurementStats(ctx context.Context, fieldID string) (model.MeasurementStats, error) {
	var out model.MeasurementStats
	err := c.do(ctx, call{method: http.MethodGet, template: "/measurements/stats/byFieldId/{fieldId}", params: []any{fieldID}, out: &out, cache: true})
	return out, err
}
