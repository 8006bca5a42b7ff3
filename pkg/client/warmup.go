package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// warmupLimit bounds concurrent prefetches.
const warmupLimit = 4

// Warmup prefetches the lists the data-entry screens need so they can be
// served from the cache later. fieldID may be empty. It fails fast on the
// first error.
func (c *Client) Warmup(ctx context.Context, userID, fieldID string) error {
	if c.cache == nil {
		return fmt.Errorf("client: warmup needs a cache")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupLimit)

	g.Go(func() error {
		_, err := c.ListFields(gctx, userID)
		return err
	})
	g.Go(func() error {
		_, err := c.ListVariables(gctx, userID)
		return err
	})
	g.Go(func() error {
		_, err := c.ListTypeOfObjects(gctx)
		return err
	})
	if fieldID != "" {
		g.Go(func() error {
			pens, err := c.ListPens(gctx, fieldID)
			if err != nil {
				return err
			}
			for _, pen := range pens {
				for _, obj := range pen.TypeOfObjects {
					if _, err := c.ListPenVariables(gctx, obj.ID, pen.ID); err != nil {
						return err
					}
				}
			}
			return nil
		})
		g.Go(func() error {
			_, err := c.ListReports(gctx, fieldID)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("client: warmup: %w", err)
	}
	c.logger.Info("client: cache warmed", zap.String("user", userID), zap.String("field", fieldID))
	return nil
}
