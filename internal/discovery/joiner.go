package discovery

import (
	"context"
	"fmt"

	"venuehub/internal/domain/venues"
)

// orderByIDs returns rows in the order of ids. Ids without a row are skipped.
func orderByIDs(ids []int64, rows []venues.Venue) []venues.Venue {
	byID := make(map[int64]venues.Venue, len(rows))
	for _, v := range rows {
		byID[v.ID] = v
	}

	out := make([]venues.Venue, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

func venueIDs(rows []venues.Venue) []int64 {
	ids := make([]int64, len(rows))
	for i, v := range rows {
		ids[i] = v.ID
	}
	return ids
}

// fetchPage loads the venue rows of an already paginated id slice, keeping its order.
func (e *Engine) fetchPage(ctx context.Context, ids []int64) ([]venues.Venue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := e.store.GetVenuesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch page venues: %w", err)
	}
	return orderByIDs(ids, rows), nil
}

// fetchActivePage is fetchPage for ids taken from outside the candidate set.
// The ids go back through the candidate predicates so a venue deactivated
// since the ids were read drops out of the page.
func (e *Engine) fetchActivePage(ctx context.Context, ids []int64) ([]venues.Venue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := e.store.ListCandidatePage(ctx, venues.Criteria{IDs: ids}, len(ids), 0)
	if err != nil {
		return nil, fmt.Errorf("fetch active page venues: %w", err)
	}
	return orderByIDs(ids, rows), nil
}

// aggregate batch-loads the derived values for a page of rows. The parent
// rows are already paginated; children are merged by id, never joined.
func (e *Engine) aggregate(ctx context.Context, rows []venues.Venue) (map[int64]venues.Aggregate, error) {
	if len(rows) == 0 {
		return map[int64]venues.Aggregate{}, nil
	}
	aggs, err := e.store.LoadAggregates(ctx, venueIDs(rows))
	if err != nil {
		return nil, fmt.Errorf("load aggregates: %w", err)
	}
	return aggs, nil
}

// joinList merges aggregates into list items. A venue missing from aggs gets zero values.
func (e *Engine) joinList(rows []venues.Venue, aggs map[int64]venues.Aggregate) []VenueListItem {
	items := make([]VenueListItem, 0, len(rows))
	for _, v := range rows {
		items = append(items, e.listItem(v, aggs[v.ID]))
	}
	return items
}
