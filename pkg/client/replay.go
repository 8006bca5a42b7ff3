package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Replay sends a queued request as recorded and returns the raw response
// body. Transport failures are returned as is; nothing is queued again.
// Requests queued by a different user than the signed-in one are refused.
func (c *Client) Replay(ctx context.Context, item QueuedRequest) (json.RawMessage, error) {
	if strings.TrimSpace(item.Method) == "" || !strings.HasPrefix(item.Path, "/") {
		return nil, fmt.Errorf("client: malformed queued request %q", item.ID)
	}
	if item.UserID != "" {
		if current := c.userID(ctx); current != "" && current != item.UserID {
			return nil, fmt.Errorf("%w: %s", ErrOtherUser, item.ID)
		}
	}
	raw := item.Body
	if raw == nil {
		raw = json.RawMessage{}
	}
	var out json.RawMessage
	err := c.do(ctx, call{
		method:     item.Method,
		template:   item.Path,
		raw:        raw,
		out:        &out,
		invalidate: []string{"/" + item.Entity + "/"},
	})
	return out, err
}
