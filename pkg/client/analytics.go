package client

import (
	"context"
	"net/http"

	"github.com/goliatone/go-farmform/pkg/model"
)

// AnalyticsOverview returns the admin overview.
func (c *Client) AnalyticsOverview(ctx context.Context) (model.AnalyticsOverview, error) {
	var out model.AnalyticsOverview
	err := c.do(ctx, call{method: http.MethodGet, template: "/analytics/overview", out: &out})
	return out, err
}

// LastActivity returns the most recent activity on the platform.
func (c *Client) LastActivity(ctx context.Context) (model.LastActivity, error) {
	var out model.LastActivity
	err := c.do(ctx, call{method: http.MethodGet, template: "/analytics/last-activity", out: &out})
	return out, err
}

func (c *Client) MonthlyData(ctx context.Context) ([]model.MonthlyData, error) {
	var out []model.MonthlyData
	err := c.do(ctx, call{method: http.MethodGet, template: "/analytics/monthly-data", out: &out})
	return out, err
}

func (c *Client) UserStats(ctx context.Context) ([]model.UserStats, error) {
	var out []model.UserStats
	err := c.do(ctx, call{method: http.MethodGet, template: "/analytics/user-stats", out: &out})
	return out, err
}
