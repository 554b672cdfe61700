package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/aurea-commerce/aurea-inventory/internal/shared"
)

// Query is the read-side facade: stock listings, per-variant history, and
// the on-demand reconciliation replay.
type Query struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewQuery builds the facade. Cache is optional.
func NewQuery(repo RepositoryPort, cache *Cache) *Query {
	return &Query{repo: repo, cache: cache}
}

// GetStock returns one variant's record through the read-through cache.
// Concurrent misses for the same variant collapse into a single load.
func (q *Query) GetStock(ctx context.Context, variantID uuid.UUID) (StockRecord, error) {
	return q.cache.FetchStock(ctx, variantID, func(ctx context.Context) (StockRecord, error) {
		value, err, _ := q.group.Do("stock:"+variantID.String(), func() (any, error) {
			return q.repo.GetStock(ctx, variantID)
		})
		if err != nil {
			return StockRecord{}, err
		}
		return value.(StockRecord), nil
	})
}

// ListStock returns the filtered, paginated stock listing.
func (q *Query) ListStock(ctx context.Context, filter StockFilter) ([]StockRecord, shared.Pagination, error) {
	records, total, err := q.repo.ListStock(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return records, shared.NewPagination(filter.Page.Page, filter.Page.Size, total), nil
}

// History returns the variant's transaction log, newest first.
func (q *Query) History(ctx context.Context, variantID uuid.UUID, page shared.PageRequest) ([]Transaction, shared.Pagination, error) {
	if _, err := q.repo.GetStock(ctx, variantID); err != nil {
		return nil, shared.Pagination{}, err
	}
	txns, total, err := q.repo.ListTransactions(ctx, variantID, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return txns, shared.NewPagination(page.Page, page.Size, total), nil
}

// ReconcileResult reports a replay of the transaction log against the
// materialized record.
type ReconcileResult struct {
	VariantID        uuid.UUID
	TransactionCount int
	ReplayedOnHand   int64
	ReplayedReserved int64
	RecordOnHand     int64
	RecordReserved   int64
	Consistent       bool
}

// Reconcile replays the variant's transactions in creation order from zero
// and compares the result with the materialized record. Concurrent replays
// of the same variant share one pass.
func (q *Query) Reconcile(ctx context.Context, variantID uuid.UUID) (ReconcileResult, error) {
	value, err, _ := q.group.Do("reconcile:"+variantID.String(), func() (any, error) {
		rec, err := q.repo.GetStock(ctx, variantID)
		if err != nil {
			return ReconcileResult{}, err
		}
		txns, err := q.repo.ReplayTransactions(ctx, variantID)
		if err != nil {
			return ReconcileResult{}, err
		}
		result := ReconcileResult{VariantID: variantID, TransactionCount: len(txns)}
		for _, txn := range txns {
			result.ReplayedOnHand += txn.QuantityDelta
			result.ReplayedReserved += txn.ReservedDelta()
		}
		result.RecordOnHand = rec.QuantityOnHand
		result.RecordReserved = rec.QuantityReserved
		result.Consistent = result.ReplayedOnHand == result.RecordOnHand &&
			result.ReplayedReserved == result.RecordReserved
		return result, nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	return value.(ReconcileResult), nil
}

// ReconcileAll replays every active variant, returning the inconsistent ones.
// Used by the scheduled integrity scan.
func (q *Query) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	ids, err := q.repo.ListVariantIDs(ctx)
	if err != nil {
		return nil, err
	}
	drifted := []ReconcileResult{}
	for _, id := range ids {
		result, err := q.Reconcile(ctx, id)
		if err != nil {
			return drifted, fmt.Errorf("reconcile %s: %w", id, err)
		}
		if !result.Consistent {
			drifted = append(drifted, result)
		}
	}
	return drifted, nil
}
