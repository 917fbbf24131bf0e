package usecase

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"nudge/internal/domain"
	"nudge/internal/ports"
	"nudge/internal/workpool"
)

// fetchContents loads item content for ids with at most limit requests in
// flight. Failed ids are left out of the map and reported in the joined error.
func fetchContents(ctx context.Context, api ports.ItemsAPI, ids []string, limit int) (map[string]domain.ItemContent, error) {
	results := workpool.Map(ctx, ids, limit, func(ctx context.Context, id string) (domain.ItemDetail, error) {
		return api.GetItem(ctx, id, true)
	})

	out := make(map[string]domain.ItemContent, len(results))
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("get item %s: %w", r.Input, r.Err))
			continue
		}
		if r.Value.Content != nil {
			out[r.Input] = *r.Value.Content
		}
	}
	return out, errors.Join(errs...)
}

// mergeContents returns a new map holding base overlaid with fresh.
func mergeContents(base, fresh map[string]domain.ItemContent) map[string]domain.ItemContent {
	out := make(map[string]domain.ItemContent, len(base)+len(fresh))
	maps.Copy(out, base)
	maps.Copy(out, fresh)
	return out
}

func succeededIDs(items []domain.Item, skip map[string]domain.ItemContent) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.Status != domain.StatusSucceeded {
			continue
		}
		if _, cached := skip[it.ID]; cached {
			continue
		}
		ids = append(ids, it.ID)
	}
	return ids
}

func countFailures(err error) int {
	if err == nil {
		return 0
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
