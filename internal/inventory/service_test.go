package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aurea-commerce/aurea-inventory/internal/catalog"
	"github.com/aurea-commerce/aurea-inventory/internal/shared"
)

// memoryRepo implements RepositoryPort with copy-on-write transactions so a
// failed callback leaves no partial writes behind, mirroring the rollback
// behaviour of the SQL implementation.
type memoryRepo struct {
	mu        sync.Mutex
	stocks    map[uuid.UUID]StockRecord
	txns      []Transaction
	resvs     []Reservation
	nextTxID  int64
	nextResID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{stocks: make(map[uuid.UUID]StockRecord)}
}

type memoryTx struct {
	stocks    map[uuid.UUID]StockRecord
	txns      []Transaction
	resvs     []Reservation
	nextTxID  int64
	nextResID int64
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staged := &memoryTx{
		stocks:    make(map[uuid.UUID]StockRecord, len(r.stocks)),
		txns:      append([]Transaction(nil), r.txns...),
		resvs:     append([]Reservation(nil), r.resvs...),
		nextTxID:  r.nextTxID,
		nextResID: r.nextResID,
	}
	for id, rec := range r.stocks {
		staged.stocks[id] = rec
	}
	if err := fn(ctx, staged); err != nil {
		return err
	}
	r.stocks = staged.stocks
	r.txns = staged.txns
	r.resvs = staged.resvs
	r.nextTxID = staged.nextTxID
	r.nextResID = staged.nextResID
	return nil
}

func (r *memoryRepo) GetStock(ctx context.Context, variantID uuid.UUID) (StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.stocks[variantID]
	if !ok {
		return StockRecord{}, ErrVariantNotFound
	}
	return rec, nil
}

func (r *memoryRepo) ListStock(ctx context.Context, filter StockFilter) ([]StockRecord, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []StockRecord{}
	kw := strings.ToLower(strings.TrimSpace(filter.Keyword))
	for _, rec := range r.stocks {
		if rec.Archived && !filter.IncludeArchived {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(rec.SKU), kw) && !strings.Contains(strings.ToLower(rec.ProductName), kw) {
			continue
		}
		if filter.LowStockBelow > 0 && rec.AvailableStock() >= filter.LowStockBelow {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].SKU < matched[j].SKU })
	total := len(matched)
	start := filter.Page.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Page.Size
	if filter.Page.Size <= 0 || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *memoryRepo) ListTransactions(ctx context.Context, variantID uuid.UUID, page shared.PageRequest) ([]Transaction, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []Transaction{}
	for _, txn := range r.txns {
		if txn.VariantID == variantID {
			matched = append(matched, txn)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := len(matched)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if page.Size <= 0 || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *memoryRepo) ReplayTransactions(ctx context.Context, variantID uuid.UUID) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := []Transaction{}
	for _, txn := range r.txns {
		if txn.VariantID == variantID {
			matched = append(matched, txn)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (r *memoryRepo) ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expired := []Reservation{}
	for _, res := range r.resvs {
		if res.Status == ReservationActive && !res.ExpiresAt.After(now) {
			expired = append(expired, res)
		}
		if limit > 0 && len(expired) >= limit {
			break
		}
	}
	return expired, nil
}

func (r *memoryRepo) ListVariantIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []uuid.UUID{}
	for id, rec := range r.stocks {
		if !rec.Archived {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (tx *memoryTx) GetStockForUpdate(ctx context.Context, variantID uuid.UUID) (StockRecord, error) {
	rec, ok := tx.stocks[variantID]
	if !ok {
		return StockRecord{}, ErrVariantNotFound
	}
	return rec, nil
}

func (tx *memoryTx) InsertStock(ctx context.Context, rec StockRecord) error {
	if _, exists := tx.stocks[rec.VariantID]; exists {
		return ErrVariantExists
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	tx.stocks[rec.VariantID] = rec
	return nil
}

func (tx *memoryTx) UpdateStock(ctx context.Context, rec StockRecord) error {
	if _, exists := tx.stocks[rec.VariantID]; !exists {
		return ErrVariantNotFound
	}
	rec.UpdatedAt = time.Now().UTC()
	tx.stocks[rec.VariantID] = rec
	return nil
}

func (tx *memoryTx) InsertTransaction(ctx context.Context, txn Transaction) (Transaction, error) {
	tx.nextTxID++
	txn.ID = tx.nextTxID
	txn.CreatedAt = time.Now().UTC()
	tx.txns = append(tx.txns, txn)
	return txn, nil
}

func (tx *memoryTx) GetReservationForUpdate(ctx context.Context, variantID uuid.UUID, orderRef string) (Reservation, error) {
	for _, res := range tx.resvs {
		if res.VariantID == variantID && res.OrderRef == orderRef {
			return res, nil
		}
	}
	return Reservation{}, ErrReservationNotFound
}

func (tx *memoryTx) InsertReservation(ctx context.Context, res Reservation) (Reservation, error) {
	for _, existing := range tx.resvs {
		if existing.VariantID == res.VariantID && existing.OrderRef == res.OrderRef {
			return Reservation{}, ErrReservationExists
		}
	}
	tx.nextResID++
	res.ID = tx.nextResID
	res.UpdatedAt = time.Now().UTC()
	tx.resvs = append(tx.resvs, res)
	return res, nil
}

func (tx *memoryTx) TransitionReservation(ctx context.Context, id int64, from, to ReservationStatus) error {
	if !from.CanTransition(to) {
		return ErrInvalidState
	}
	for i, res := range tx.resvs {
		if res.ID == id {
			if res.Status != from {
				return ErrInvalidState
			}
			tx.resvs[i].Status = to
			tx.resvs[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrInvalidState
}

// memoryIdemStore implements IdempotencyPort in memory.
type memoryIdemStore struct {
	keys map[string]bool
}

func newMemoryIdemStore() *memoryIdemStore {
	return &memoryIdemStore{keys: map[string]bool{}}
}

func (s *memoryIdemStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	s.keys[key] = true
	return nil
}

func (s *memoryIdemStore) Delete(ctx context.Context, key string) error {
	delete(s.keys, key)
	return nil
}

func newTestService(repo RepositoryPort) *Service {
	return NewService(nil, repo, nil, nil, nil, nil, nil, ServiceConfig{})
}

func seedStock(t *testing.T, svc *Service, qty, unitCost int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := svc.CreateStock(context.Background(), OpeningInput{
		Variant: catalog.VariantRef{
			VariantID:   id,
			SKU:         "TEE-BLK-" + id.String()[:8],
			ProductName: "Classic Tee",
			Attributes:  map[string]string{"size": "M", "color": "black"},
		},
		Quantity: qty,
		UnitCost: unitCost,
		Actor:    "tester",
	})
	require.NoError(t, err)
	return id
}

func TestCreateStockWritesOpeningBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	id := uuid.New()
	result, err := svc.CreateStock(ctx, OpeningInput{
		Variant:  catalog.VariantRef{VariantID: id, SKU: "TEE-BLK-M", ProductName: "Classic Tee"},
		Quantity: 25,
		UnitCost: 1500,
		Actor:    "tester",
	})
	require.NoError(t, err)
	require.EqualValues(t, 25, result.Record.QuantityOnHand)
	require.EqualValues(t, 0, result.Record.QuantityReserved)
	require.EqualValues(t, 1500, result.Record.LastImportCost)
	require.NotNil(t, result.Transaction)
	require.Equal(t, TransactionTypeOpeningBalance, result.Transaction.Type)
	require.EqualValues(t, 0, result.Transaction.BeforeQuantity)
	require.EqualValues(t, 25, result.Transaction.AfterQuantity)
	require.Equal(t, "tester", result.Transaction.PerformedBy)
}

func TestCreateStockRejectsDuplicateVariant(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 5, 1000)

	_, err := svc.CreateStock(context.Background(), OpeningInput{
		Variant:  catalog.VariantRef{VariantID: id, SKU: "TEE-DUP", ProductName: "Classic Tee"},
		Quantity: 1,
	})
	require.ErrorIs(t, err, ErrVariantExists)
}

func TestCreateStockRejectsUnknownAttribute(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.CreateStock(context.Background(), OpeningInput{
		Variant: catalog.VariantRef{
			VariantID:   uuid.New(),
			SKU:         "TEE-ODD",
			ProductName: "Classic Tee",
			Attributes:  map[string]string{"flavour": "mint"},
		},
	})
	require.ErrorIs(t, err, catalog.ErrUnknownAttribute)
}

func TestAdjustRequiresReason(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)

	_, err := svc.Adjust(context.Background(), AdjustmentInput{VariantID: id, QuantityDelta: -2})
	require.ErrorIs(t, err, ErrReasonRequired)

	_, err = svc.Adjust(context.Background(), AdjustmentInput{VariantID: id, Reason: "stocktake"})
	require.ErrorIs(t, err, ErrQuantityRequired)
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	before := len(repo.txns)

	_, err := svc.Adjust(context.Background(), AdjustmentInput{VariantID: id, QuantityDelta: -15, Reason: "stocktake"})
	require.ErrorIs(t, err, ErrWouldGoNegative)

	// A rejected mutation must leave the ledger untouched.
	require.Len(t, repo.txns, before)
	rec, err := repo.GetStock(context.Background(), id)
	require.NoError(t, err)
	require.EqualValues(t, 10, rec.QuantityOnHand)
}

func TestAdjustCannotCutIntoReservedStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, ReserveInput{VariantID: id, OrderRef: "ORD-1", Quantity: 6})
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, AdjustmentInput{VariantID: id, QuantityDelta: -5, Reason: "shrinkage"})
	require.ErrorIs(t, err, ErrInvalidState)

	result, err := svc.Adjust(ctx, AdjustmentInput{VariantID: id, QuantityDelta: -4, Reason: "shrinkage", Kind: TransactionTypeDamaged})
	require.NoError(t, err)
	require.Equal(t, TransactionTypeDamaged, result.Transaction.Type)
	require.EqualValues(t, 6, result.Record.QuantityOnHand)
	require.EqualValues(t, 0, result.Record.AvailableStock())
}

func TestAdjustRejectsUnknownKind(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)

	_, err := svc.Adjust(context.Background(), AdjustmentInput{VariantID: id, QuantityDelta: 1, Reason: "r", Kind: TransactionTypeReserve})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestImportValidatesQuantityAndPrice(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	_, err := svc.Import(ctx, ImportInput{VariantID: id, Quantity: 0, UnitCost: 500})
	require.ErrorIs(t, err, ErrQuantityRequired)

	_, err = svc.Import(ctx, ImportInput{VariantID: id, Quantity: 5, UnitCost: 0})
	require.ErrorIs(t, err, ErrImportPriceRequired)
}

func TestImportFlagsCostDiscrepancy(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	// Within 50% of the last known cost: no warning.
	result, err := svc.Import(ctx, ImportInput{VariantID: id, Quantity: 5, UnitCost: 1400})
	require.NoError(t, err)
	require.Nil(t, result.CostWarning)
	require.EqualValues(t, 15, result.Record.QuantityOnHand)
	require.EqualValues(t, 1400, result.Record.LastImportCost)

	// Triple the last known cost: advisory warning, import still applies.
	result, err = svc.Import(ctx, ImportInput{VariantID: id, Quantity: 5, UnitCost: 4200})
	require.NoError(t, err)
	require.NotNil(t, result.CostWarning)
	require.EqualValues(t, 1400, result.CostWarning.LastKnownCost)
	require.EqualValues(t, 4200, result.CostWarning.ImportCost)
	require.EqualValues(t, 20, result.Record.QuantityOnHand)
	require.EqualValues(t, 4200, result.Record.LastImportCost)
}

func TestReserveHoldsAvailableStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	result, err := svc.Reserve(ctx, ReserveInput{VariantID: id, OrderRef: "ORD-1", Quantity: 8})
	require.NoError(t, err)
	require.EqualValues(t, 10, result.Record.QuantityOnHand)
	require.EqualValues(t, 8, result.Record.QuantityReserved)
	require.EqualValues(t, 2, result.Record.AvailableStock())
	require.Equal(t, TransactionTypeReserve, result.Transaction.Type)
	require.EqualValues(t, 0, result.Transaction.QuantityDelta)
	require.EqualValues(t, 8, result.Transaction.ReservedDelta())

	// Only 2 available even though 10 are on hand.
	_, err = svc.Reserve(ctx, ReserveInput{VariantID: id, OrderRef: "ORD-2", Quantity: 5})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestReserveRejectsDuplicateOrderRef(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, ReserveInput{VariantID: id, OrderRef: "ORD-1", Quantity: 2})
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, ReserveInput{VariantID: id, OrderRef: "ORD-1", Quantity: 2})
	require.ErrorIs(t, err, ErrReservationExists)
}

func TestReleaseIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, ReserveInput{VariantID: id, OrderRef: "ORD-1", Quantity: 4})
	require.NoError(t, err)

	result, err := svc.Release(ctx, ReservationInput{VariantID: id, OrderRef: "ORD-1"})
	require.NoError(t, err)
	require.NotNil(t, result.Transaction)
	require.Equal(t, TransactionTypeRelease, result.Transaction.Type)
	require.EqualValues(t, -4, result.Transaction.ReservedDelta())
	require.EqualValues(t, 0, result.Record.QuantityReserved)

	ledgerLen := len(repo.txns)

	// A cancellation retry is a no-op, not an error, and writes nothing.
	result, err = svc.Release(ctx, ReservationInput{VariantID: id, OrderRef: "ORD-1"})
	require.NoError(t, err)
	require.Nil(t, result.Transaction)
	require.Len(t, repo.txns, ledgerLen)
}

func TestConfirmConvertsReservation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, ReserveInput{VariantID: id, OrderRef: "ORD-1", Quantity: 4})
	require.NoError(t, err)

	result, err := svc.Confirm(ctx, ReservationInput{VariantID: id, OrderRef: "ORD-1"})
	require.NoError(t, err)
	require.Equal(t, TransactionTypeConfirm, result.Transaction.Type)
	require.EqualValues(t, -4, result.Transaction.QuantityDelta)
	require.EqualValues(t, -4, result.Transaction.ReservedDelta())
	require.EqualValues(t, 6, result.Record.QuantityOnHand)
	require.EqualValues(t, 0, result.Record.QuantityReserved)

	_, err = svc.Confirm(ctx, ReservationInput{VariantID: id, OrderRef: "ORD-1"})
	require.ErrorIs(t, err, ErrAlreadyConfirmed)

	_, err = svc.Release(ctx, ReservationInput{VariantID: id, OrderRef: "ORD-1"})
	require.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestConfirmAfterReleaseRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, ReserveInput{VariantID: id, OrderRef: "ORD-1", Quantity: 4})
	require.NoError(t, err)
	_, err = svc.Release(ctx, ReservationInput{VariantID: id, OrderRef: "ORD-1"})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, ReservationInput{VariantID: id, OrderRef: "ORD-1"})
	require.ErrorIs(t, err, ErrAlreadyReleased)
}

func TestReservationMissing(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	_, err := svc.Release(ctx, ReservationInput{VariantID: id, OrderRef: "ORD-NOPE"})
	require.ErrorIs(t, err, ErrReservationNotFound)
	_, err = svc.Confirm(ctx, ReservationInput{VariantID: id, OrderRef: "ORD-NOPE"})
	require.ErrorIs(t, err, ErrReservationNotFound)
}

func TestReleaseExpiredSweep(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, ReserveInput{VariantID: id, OrderRef: "ORD-1", Quantity: 3, TTL: time.Minute})
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, ReserveInput{VariantID: id, OrderRef: "ORD-2", Quantity: 2, TTL: time.Hour})
	require.NoError(t, err)

	released, err := svc.ReleaseExpired(ctx, time.Now().UTC().Add(10*time.Minute), 100)
	require.NoError(t, err)
	require.Equal(t, 1, released)

	rec, err := repo.GetStock(ctx, id)
	require.NoError(t, err)
	require.EqualValues(t, 2, rec.QuantityReserved)
}

// staleListRepo hands the sweep a listing captured before another caller
// released the reservation, reproducing the race between listing and locking.
type staleListRepo struct {
	*memoryRepo
	stale []Reservation
}

func (r *staleListRepo) ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	return r.stale, nil
}

func TestReleaseExpiredSkipsConcurrentlyReleased(t *testing.T) {
	base := newMemoryRepo()
	svc := newTestService(base)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, ReserveInput{VariantID: id, OrderRef: "ORD-1", Quantity: 3, TTL: time.Minute})
	require.NoError(t, err)

	deadline := time.Now().UTC().Add(10 * time.Minute)
	stale, err := base.ListExpiredReservations(ctx, deadline, 100)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	// Another caller releases it after the listing was taken.
	_, err = svc.Release(ctx, ReservationInput{VariantID: id, OrderRef: "ORD-1", Actor: "order-service"})
	require.NoError(t, err)
	ledgerLen := len(base.txns)

	sweepSvc := newTestService(&staleListRepo{memoryRepo: base, stale: stale})
	released, err := sweepSvc.ReleaseExpired(ctx, deadline, 100)
	require.NoError(t, err)
	require.Equal(t, 0, released)
	require.Len(t, base.txns, ledgerLen)
}

func TestIdempotencyRejectsReplay(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdemStore()
	svc := NewService(nil, repo, nil, idem, nil, nil, nil, ServiceConfig{})
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, AdjustmentInput{VariantID: id, QuantityDelta: 2, Reason: "recount", IdempotencyKey: "req-1"})
	require.NoError(t, err)
	ledgerLen := len(repo.txns)

	// A replay of a committed key is rejected and writes nothing.
	_, err = svc.Adjust(ctx, AdjustmentInput{VariantID: id, QuantityDelta: 2, Reason: "recount", IdempotencyKey: "req-1"})
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, repo.txns, ledgerLen)
	require.True(t, idem.keys["req-1"])
}

func TestIdempotencyKeyFreedWhenMutationFails(t *testing.T) {
	repo := newMemoryRepo()
	idem := newMemoryIdemStore()
	svc := NewService(nil, repo, nil, idem, nil, nil, nil, ServiceConfig{})
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, AdjustmentInput{VariantID: id, QuantityDelta: -15, Reason: "stocktake", IdempotencyKey: "req-2"})
	require.ErrorIs(t, err, ErrWouldGoNegative)
	require.False(t, idem.keys["req-2"])

	// A corrected retry under the same key goes through.
	result, err := svc.Adjust(ctx, AdjustmentInput{VariantID: id, QuantityDelta: -5, Reason: "stocktake", IdempotencyKey: "req-2"})
	require.NoError(t, err)
	require.EqualValues(t, 5, result.Record.QuantityOnHand)
	require.True(t, idem.keys["req-2"])
}

func TestArchiveStockKeepsHistory(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	id := seedStock(t, svc, 10, 1000)
	ctx := context.Background()

	rec, err := svc.ArchiveStock(ctx, id, "tester")
	require.NoError(t, err)
	require.True(t, rec.Archived)

	ids, err := repo.ListVariantIDs(ctx)
	require.NoError(t, err)
	require.NotContains(t, ids, id)

	txns, err := repo.ReplayTransactions(ctx, id)
	require.NoError(t, err)
	require.NotEmpty(t, txns)
}

func TestVariantsAreIndependent(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	a := seedStock(t, svc, 10, 1000)
	b := seedStock(t, svc, 3, 1000)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, AdjustmentInput{VariantID: a, QuantityDelta: -4, Reason: "stocktake"})
	require.NoError(t, err)

	recB, err := repo.GetStock(ctx, b)
	require.NoError(t, err)
	require.EqualValues(t, 3, recB.QuantityOnHand)
}
