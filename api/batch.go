package api

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/withexxa/hn-whoshiring/models"
)

// ItemResult is the outcome of fetching the item at one position of a batch
type ItemResult struct {
	ID   int
	Item *models.Item
	Err  error
}

// FetchMany fetches every id concurrently and returns the items in the same order as ids.
// The first failure fails the whole batch and stops fetches that have not started yet.
func (h *HackerNewsAPI) FetchMany(ctx context.Context, ids []int) ([]*models.Item, error) {
	items := make([]*models.Item, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.limit(len(ids)))

	for i, id := range ids {
		g.Go(func() error {
			item, err := h.FetchItem(gctx, id)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		h.log.WithError(err).WithField("batch_size", len(ids)).Error("Batch fetch failed")
		return nil, err
	}

	h.log.WithField("batch_size", len(ids)).Debug("Fetched batch of items")
	return items, nil
}

// FetchEach fetches every id concurrently and reports a result for each position,
// so callers can keep the items that succeeded
func (h *HackerNewsAPI) FetchEach(ctx context.Context, ids []int) []ItemResult {
	results := make([]ItemResult, len(ids))
	if len(ids) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(h.limit(len(ids)))

	for i, id := range ids {
		g.Go(func() error {
			item, err := h.FetchItem(ctx, id)
			results[i] = ItemResult{ID: id, Item: item, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	h.log.WithFields(logrus.Fields{
		"batch_size": len(ids),
		"failed":     failed,
	}).Debug("Fetched batch of items with per-item results")

	return results
}

func (h *HackerNewsAPI) limit(n int) int {
	if h.maxInFlight <= 0 || h.maxInFlight > n {
		return n
	}
	return h.maxInFlight
}
