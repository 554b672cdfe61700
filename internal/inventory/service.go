package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aurea-commerce/aurea-inventory/internal/catalog"
	"github.com/aurea-commerce/aurea-inventory/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort claims a caller-supplied request key before a mutation and
// releases the claim when the mutation fails.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort records ledger operation outcomes.
type MetricsPort interface {
	ObserveLedgerOp(op, outcome string)
}

// ServiceConfig groups tunable settings.
type ServiceConfig struct {
	// DefaultReservationTTL bounds how long an unconfirmed order may hold
	// stock before the sweep releases it.
	DefaultReservationTTL time.Duration
	// CostAlertRatio is the relative deviation from the last known import
	// cost that triggers the advisory warning. Defaults to 0.5.
	CostAlertRatio float64
}

// Service coordinates all ledger-mutating operations. Each one runs as a
// single repeatable-read transaction that locks the variant's stock row,
// writes exactly one ledger row, and updates the materialized record.
type Service struct {
	logger      *slog.Logger
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	cache       *Cache
	events      EventHandler
	metrics     MetricsPort
	schema      catalog.Schema
	cfg         ServiceConfig
}

// NewService builds Service. Audit, idempotency, cache, events and metrics
// are optional; a nil port disables that concern.
func NewService(logger *slog.Logger, repo RepositoryPort, audit AuditPort, idem IdempotencyPort, cache *Cache, events EventHandler, metrics MetricsPort, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultReservationTTL <= 0 {
		cfg.DefaultReservationTTL = 30 * time.Minute
	}
	if cfg.CostAlertRatio <= 0 {
		cfg.CostAlertRatio = 0.5
	}
	return &Service{
		logger:      logger,
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		cache:       cache,
		events:      events,
		metrics:     metrics,
		schema:      catalog.DefaultSchema(),
		cfg:         cfg,
	}
}

// OpeningInput creates a stock record with its opening balance.
type OpeningInput struct {
	Variant        catalog.VariantRef
	Quantity       int64
	UnitCost       int64
	Note           string
	Actor          string
	IdempotencyKey string
}

// AdjustmentInput describes a manual stock correction.
type AdjustmentInput struct {
	VariantID      uuid.UUID
	QuantityDelta  int64
	Kind           TransactionType
	Reason         string
	Actor          string
	IdempotencyKey string
}

// ImportInput describes supplier stock intake.
type ImportInput struct {
	VariantID      uuid.UUID
	Quantity       int64
	UnitCost       int64
	Note           string
	Actor          string
	IdempotencyKey string
}

// ReserveInput holds stock against an unconfirmed order.
type ReserveInput struct {
	VariantID      uuid.UUID
	OrderRef       string
	Quantity       int64
	TTL            time.Duration
	Actor          string
	IdempotencyKey string
}

// ReservationInput identifies an existing reservation for release/confirm.
type ReservationInput struct {
	VariantID      uuid.UUID
	OrderRef       string
	Actor          string
	IdempotencyKey string
}

// CreateStock creates the variant's stock record and writes the opening
// balance transaction.
func (s *Service) CreateStock(ctx context.Context, input OpeningInput) (*MutationResult, error) {
	if err := input.Variant.Validate(s.schema); err != nil {
		return nil, err
	}
	if input.Quantity < 0 {
		return nil, ErrQuantityRequired
	}
	if input.UnitCost < 0 {
		return nil, ErrImportPriceRequired
	}
	result, err := s.withIdempotency(ctx, input.IdempotencyKey, func() (*MutationResult, error) {
		var res MutationResult
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			rec := StockRecord{
				VariantID:      input.Variant.VariantID,
				SKU:            input.Variant.SKU,
				ProductName:    input.Variant.ProductName,
				Attributes:     input.Variant.Attributes,
				LastImportCost: input.UnitCost,
			}
			if err := tx.InsertStock(ctx, rec); err != nil {
				return err
			}
			updated, txn, err := s.commit(ctx, tx, rec, TransactionTypeOpeningBalance, input.Quantity, 0, input.UnitCost, "", input.Note, input.Actor)
			if err != nil {
				return err
			}
			res = MutationResult{Record: updated, Transaction: &txn}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &res, nil
	})
	s.observe("opening_balance", err)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, result, "inventory:opening_balance", input.Actor)
	return result, nil
}

// Adjust applies a manual increase or decrease with a mandatory reason.
func (s *Service) Adjust(ctx context.Context, input AdjustmentInput) (*MutationResult, error) {
	kind := input.Kind
	if kind == "" {
		kind = TransactionTypeAdjust
	}
	if kind != TransactionTypeAdjust && kind != TransactionTypeDamaged && kind != TransactionTypeReturn {
		return nil, ErrInvalidState
	}
	if input.Reason == "" {
		return nil, ErrReasonRequired
	}
	if input.QuantityDelta == 0 {
		return nil, ErrQuantityRequired
	}
	result, err := s.withIdempotency(ctx, input.IdempotencyKey, func() (*MutationResult, error) {
		var res MutationResult
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			rec, err := tx.GetStockForUpdate(ctx, input.VariantID)
			if err != nil {
				return err
			}
			if rec.QuantityOnHand+input.QuantityDelta < 0 {
				return ErrWouldGoNegative
			}
			// A decrease may not cut into stock already held for orders.
			if rec.QuantityOnHand+input.QuantityDelta < rec.QuantityReserved {
				return ErrInvalidState
			}
			updated, txn, err := s.commit(ctx, tx, rec, kind, input.QuantityDelta, 0, 0, "", input.Reason, input.Actor)
			if err != nil {
				return err
			}
			res = MutationResult{Record: updated, Transaction: &txn}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &res, nil
	})
	s.observe("adjust", err)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, result, "inventory:adjust", input.Actor)
	return result, nil
}

// Import records supplier stock intake. The cost-discrepancy check is
// advisory: a suspicious unit cost flags a warning on the response without
// rejecting the operation.
func (s *Service) Import(ctx context.Context, input ImportInput) (*MutationResult, error) {
	if input.Quantity <= 0 {
		return nil, ErrQuantityRequired
	}
	if input.UnitCost <= 0 {
		return nil, ErrImportPriceRequired
	}
	result, err := s.withIdempotency(ctx, input.IdempotencyKey, func() (*MutationResult, error) {
		var res MutationResult
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			rec, err := tx.GetStockForUpdate(ctx, input.VariantID)
			if err != nil {
				return err
			}
			var warning *CostDiscrepancy
			if last := rec.LastImportCost; last > 0 && costDeviates(input.UnitCost, last, s.cfg.CostAlertRatio) {
				warning = &CostDiscrepancy{LastKnownCost: last, ImportCost: input.UnitCost}
			}
			rec.LastImportCost = input.UnitCost
			updated, txn, err := s.commit(ctx, tx, rec, TransactionTypeImport, input.Quantity, 0, input.UnitCost, "", input.Note, input.Actor)
			if err != nil {
				return err
			}
			res = MutationResult{Record: updated, Transaction: &txn, CostWarning: warning}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &res, nil
	})
	s.observe("import", err)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, result, "inventory:import", input.Actor)
	return result, nil
}

// Reserve holds stock for an order. On-hand quantity is unchanged; only the
// reserved portion grows.
func (s *Service) Reserve(ctx context.Context, input ReserveInput) (*MutationResult, error) {
	if input.Quantity <= 0 {
		return nil, ErrQuantityRequired
	}
	if input.OrderRef == "" {
		return nil, fmt.Errorf("%w: order reference required", ErrInvalidState)
	}
	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.cfg.DefaultReservationTTL
	}
	result, err := s.withIdempotency(ctx, input.IdempotencyKey, func() (*MutationResult, error) {
		var res MutationResult
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			rec, err := tx.GetStockForUpdate(ctx, input.VariantID)
			if err != nil {
				return err
			}
			if _, err := tx.GetReservationForUpdate(ctx, input.VariantID, input.OrderRef); err == nil {
				return ErrReservationExists
			} else if !errors.Is(err, ErrReservationNotFound) {
				return err
			}
			if rec.AvailableStock() < input.Quantity {
				return ErrInsufficientStock
			}
			now := time.Now().UTC()
			if _, err := tx.InsertReservation(ctx, Reservation{
				OrderRef:   input.OrderRef,
				VariantID:  input.VariantID,
				Quantity:   input.Quantity,
				Status:     ReservationActive,
				ReservedAt: now,
				ExpiresAt:  now.Add(ttl),
			}); err != nil {
				return err
			}
			updated, txn, err := s.commit(ctx, tx, rec, TransactionTypeReserve, 0, input.Quantity, 0, input.OrderRef, "", input.Actor)
			if err != nil {
				return err
			}
			res = MutationResult{Record: updated, Transaction: &txn}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &res, nil
	})
	s.observe("reserve", err)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, result, "inventory:reserve", input.Actor)
	return result, nil
}

// Release returns a reservation's stock to the available pool. Releasing an
// already-released reservation is a no-op so order-cancellation retries are
// safe; releasing a confirmed one is rejected.
func (s *Service) Release(ctx context.Context, input ReservationInput) (*MutationResult, error) {
	var res MutationResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetStockForUpdate(ctx, input.VariantID)
		if err != nil {
			return err
		}
		reservation, err := tx.GetReservationForUpdate(ctx, input.VariantID, input.OrderRef)
		if err != nil {
			return err
		}
		switch reservation.Status {
		case ReservationReleased:
			res = MutationResult{Record: rec}
			return nil
		case ReservationConfirmed:
			return ErrAlreadyConfirmed
		}
		if err := tx.TransitionReservation(ctx, reservation.ID, ReservationActive, ReservationReleased); err != nil {
			return err
		}
		updated, txn, err := s.commit(ctx, tx, rec, TransactionTypeRelease, 0, -reservation.Quantity, 0, input.OrderRef, "", input.Actor)
		if err != nil {
			return err
		}
		res = MutationResult{Record: updated, Transaction: &txn}
		return nil
	})
	s.observe("release", err)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, &res, "inventory:release", input.Actor)
	return &res, nil
}

// Confirm converts a reservation into a permanent decrease: reserved and
// on-hand both drop by the reserved quantity in the same transaction.
func (s *Service) Confirm(ctx context.Context, input ReservationInput) (*MutationResult, error) {
	result, err := s.withIdempotency(ctx, input.IdempotencyKey, func() (*MutationResult, error) {
		var res MutationResult
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			rec, err := tx.GetStockForUpdate(ctx, input.VariantID)
			if err != nil {
				return err
			}
			reservation, err := tx.GetReservationForUpdate(ctx, input.VariantID, input.OrderRef)
			if err != nil {
				return err
			}
			switch reservation.Status {
			case ReservationReleased:
				return ErrAlreadyReleased
			case ReservationConfirmed:
				return ErrAlreadyConfirmed
			}
			if err := tx.TransitionReservation(ctx, reservation.ID, ReservationActive, ReservationConfirmed); err != nil {
				return err
			}
			updated, txn, err := s.commit(ctx, tx, rec, TransactionTypeConfirm, -reservation.Quantity, -reservation.Quantity, 0, input.OrderRef, "", input.Actor)
			if err != nil {
				return err
			}
			res = MutationResult{Record: updated, Transaction: &txn}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &res, nil
	})
	s.observe("confirm", err)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, result, "inventory:confirm", input.Actor)
	return result, nil
}

// ReleaseExpired releases reservations whose deadline passed, returning how
// many were released. Used by the background sweep.
func (s *Service) ReleaseExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	expired, err := s.repo.ListExpiredReservations(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, reservation := range expired {
		res, err := s.Release(ctx, ReservationInput{
			VariantID: reservation.VariantID,
			OrderRef:  reservation.OrderRef,
			Actor:     shared.SystemActor,
		})
		if err != nil {
			// Already confirmed by a concurrent caller; skip.
			if errors.Is(err, ErrAlreadyConfirmed) || errors.Is(err, ErrReservationNotFound) {
				continue
			}
			return released, err
		}
		// A concurrent release between listing and locking yields a no-op
		// result with no ledger row; it must not count as swept.
		if res != nil && res.Transaction != nil {
			released++
		}
	}
	return released, nil
}

// ArchiveStock soft-archives a variant's record. The ledger history stays.
func (s *Service) ArchiveStock(ctx context.Context, variantID uuid.UUID, actor string) (StockRecord, error) {
	var rec StockRecord
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetStockForUpdate(ctx, variantID)
		if err != nil {
			return err
		}
		current.Archived = true
		if err := tx.UpdateStock(ctx, current); err != nil {
			return err
		}
		rec = current
		return nil
	})
	s.observe("archive", err)
	if err != nil {
		return StockRecord{}, err
	}
	s.afterCommit(ctx, &MutationResult{Record: rec}, "inventory:archive", actor)
	return rec, nil
}

// commit applies the deltas to the locked record, re-validates the stock
// invariants as a last-line guard, and writes the ledger row plus the updated
// record. Engines pre-validate to produce caller-correctable errors; anything
// slipping through here surfaces as an invariant violation.
func (s *Service) commit(ctx context.Context, tx TxRepository, rec StockRecord, txType TransactionType, quantityDelta, reservedDelta, unitCost int64, reference, note, actor string) (StockRecord, Transaction, error) {
	if !txType.Allows(quantityDelta, reservedDelta) {
		return StockRecord{}, Transaction{}, ErrInvalidState
	}
	before := rec
	rec.QuantityOnHand += quantityDelta
	rec.QuantityReserved += reservedDelta
	if err := rec.CheckInvariants(); err != nil {
		return StockRecord{}, Transaction{}, err
	}
	txn := Transaction{
		VariantID:      rec.VariantID,
		Type:           txType,
		QuantityDelta:  quantityDelta,
		BeforeQuantity: before.QuantityOnHand,
		AfterQuantity:  rec.QuantityOnHand,
		BeforeReserved: before.QuantityReserved,
		AfterReserved:  rec.QuantityReserved,
		UnitCost:       unitCost,
		Reference:      reference,
		Note:           note,
		PerformedBy:    actor,
	}
	txn, err := tx.InsertTransaction(ctx, txn)
	if err != nil {
		return StockRecord{}, Transaction{}, err
	}
	if err := tx.UpdateStock(ctx, rec); err != nil {
		return StockRecord{}, Transaction{}, err
	}
	return rec, txn, nil
}

// withIdempotency claims the caller-supplied key before the transaction and
// rolls the claim back when the operation fails, so a corrected retry of the
// same request is not rejected as a duplicate.
func (s *Service) withIdempotency(ctx context.Context, key string, fn func() (*MutationResult, error)) (*MutationResult, error) {
	inserted := false
	if key != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			return nil, err
		}
		inserted = true
	}
	res, err := fn()
	if err != nil && inserted {
		if delErr := s.idempotency.Delete(ctx, key); delErr != nil {
			s.logger.Warn("rollback idempotency key", slog.String("key", key), slog.Any("error", delErr))
		}
	}
	return res, err
}

// afterCommit runs the non-fatal post-commit hooks: cache invalidation,
// audit trail, and the integration event.
func (s *Service) afterCommit(ctx context.Context, res *MutationResult, action, actor string) {
	if res == nil {
		return
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, res.Record.VariantID); err != nil {
			s.logger.Warn("invalidate stock cache", slog.String("variant_id", res.Record.VariantID.String()), slog.Any("error", err))
		}
	}
	if res.Transaction == nil {
		return
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   action,
			Entity:   "inventory_stock",
			EntityID: res.Record.VariantID.String(),
			Meta: map[string]any{
				"tx_type":        string(res.Transaction.Type),
				"quantity_delta": res.Transaction.QuantityDelta,
				"after_qty":      res.Transaction.AfterQuantity,
				"after_reserved": res.Transaction.AfterReserved,
				"reference":      res.Transaction.Reference,
			},
		})
		if err != nil {
			s.logger.Warn("record audit log", slog.Any("error", err))
		}
	}
	if s.events != nil {
		evt := LedgerCommittedEvent{Record: res.Record, Transaction: *res.Transaction}
		if err := s.events.HandleLedgerCommitted(ctx, evt); err != nil {
			s.logger.Warn("ledger event handler", slog.String("tx_type", string(evt.Transaction.Type)), slog.Any("error", err))
		}
	}
}

func (s *Service) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	s.metrics.ObserveLedgerOp(op, outcome)
}

func costDeviates(cost, lastKnown int64, ratio float64) bool {
	diff := cost - lastKnown
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) > ratio*float64(lastKnown)
}
