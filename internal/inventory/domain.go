// Package inventory implements the stock ledger behind the Aurea back
// office: a materialized stock record per variant, an append-only transaction
// log, and the adjustment/import/reservation engines that mutate both as one
// atomic unit.
package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionType enumerates supported ledger events.
type TransactionType string

const (
	// TransactionTypeOpeningBalance is written once when a variant's stock
	// record is created.
	TransactionTypeOpeningBalance TransactionType = "OPENING_BALANCE"
	// TransactionTypeImport represents supplier stock intake.
	TransactionTypeImport TransactionType = "IMPORT"
	// TransactionTypeAdjust indicates a manual stocktake correction.
	TransactionTypeAdjust TransactionType = "ADJUST"
	// TransactionTypeDamaged is an adjustment subtype for damaged goods.
	TransactionTypeDamaged TransactionType = "DAMAGED"
	// TransactionTypeReturn is an adjustment subtype for customer returns.
	TransactionTypeReturn TransactionType = "RETURN"
	// TransactionTypeReserve holds stock against an unconfirmed order.
	TransactionTypeReserve TransactionType = "RESERVE"
	// TransactionTypeRelease returns reserved stock to the available pool.
	TransactionTypeRelease TransactionType = "RELEASE"
	// TransactionTypeConfirm converts a reservation into a permanent decrease.
	TransactionTypeConfirm TransactionType = "CONFIRM"
)

// typeSpec declares which quantities a transaction type may move. Types
// outside this table are rejected, so an invalid event can never reach the
// ledger by convention alone.
type typeSpec struct {
	movesOnHand   bool
	movesReserved bool
}

var typeSpecs = map[TransactionType]typeSpec{
	TransactionTypeOpeningBalance: {movesOnHand: true},
	TransactionTypeImport:         {movesOnHand: true},
	TransactionTypeAdjust:         {movesOnHand: true},
	TransactionTypeDamaged:        {movesOnHand: true},
	TransactionTypeReturn:         {movesOnHand: true},
	TransactionTypeReserve:        {movesReserved: true},
	TransactionTypeRelease:        {movesReserved: true},
	TransactionTypeConfirm:        {movesOnHand: true, movesReserved: true},
}

// Valid reports whether the type is part of the ledger vocabulary.
func (t TransactionType) Valid() bool {
	_, ok := typeSpecs[t]
	return ok
}

// Allows reports whether the type may carry the given deltas.
func (t TransactionType) Allows(quantityDelta, reservedDelta int64) bool {
	spec, ok := typeSpecs[t]
	if !ok {
		return false
	}
	if quantityDelta != 0 && !spec.movesOnHand {
		return false
	}
	if reservedDelta != 0 && !spec.movesReserved {
		return false
	}
	return true
}

// ReservationStatus tracks the per-order reservation state machine:
// ACTIVE -> {CONFIRMED | RELEASED}, both terminal.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationActive: {ReservationReleased, ReservationConfirmed},
}

// CanTransition reports whether moving from s to next is legal.
func (s ReservationStatus) CanTransition(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s ReservationStatus) Terminal() bool {
	return len(reservationTransitions[s]) == 0
}

// StockRecord is the materialized stock state of one variant. It is a cache
// over the transaction log: every mutation goes through the log, and the
// record is always reconstructable by replaying it from zero.
type StockRecord struct {
	VariantID        uuid.UUID
	SKU              string
	ProductName      string
	Attributes       map[string]string
	QuantityOnHand   int64
	QuantityReserved int64
	// LastImportCost is the unit cost of the most recent import in minor
	// currency units. Zero means no import recorded yet.
	LastImportCost int64
	Archived       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AvailableStock is on-hand minus reserved, the quantity orderable right now.
func (r StockRecord) AvailableStock() int64 {
	return r.QuantityOnHand - r.QuantityReserved
}

// CheckInvariants validates 0 <= reserved <= onHand.
func (r StockRecord) CheckInvariants() error {
	if r.QuantityOnHand < 0 || r.QuantityReserved < 0 || r.QuantityReserved > r.QuantityOnHand {
		return ErrInvalidState
	}
	return nil
}

// Transaction is one immutable ledger row. Snapshots of both quantities are
// kept on every row so history renders reservation movements even though
// their QuantityDelta is zero.
type Transaction struct {
	ID             int64
	VariantID      uuid.UUID
	Type           TransactionType
	QuantityDelta  int64
	BeforeQuantity int64
	AfterQuantity  int64
	BeforeReserved int64
	AfterReserved  int64
	// UnitCost is populated for IMPORT rows, in minor currency units.
	UnitCost int64
	// Reference is an external correlation such as an order code.
	Reference   string
	Note        string
	PerformedBy string
	CreatedAt   time.Time
}

// ReservedDelta is the change to the reserved quantity recorded by this row.
func (t Transaction) ReservedDelta() int64 {
	return t.AfterReserved - t.BeforeReserved
}

// Reservation is a per-order hold on a variant's stock.
type Reservation struct {
	ID         int64
	OrderRef   string
	VariantID  uuid.UUID
	Quantity   int64
	Status     ReservationStatus
	ReservedAt time.Time
	ExpiresAt  time.Time
	UpdatedAt  time.Time
}

// Expired reports whether an active reservation has passed its deadline.
func (r Reservation) Expired(now time.Time) bool {
	return r.Status == ReservationActive && !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// CostDiscrepancy is the advisory warning attached to an import whose unit
// cost deviates sharply from the last known cost. It never blocks the import.
type CostDiscrepancy struct {
	LastKnownCost int64
	ImportCost    int64
}

// MutationResult is returned by every ledger-mutating operation so callers
// can render a before/after preview without re-fetching.
type MutationResult struct {
	Record      StockRecord
	Transaction *Transaction
	CostWarning *CostDiscrepancy
}

// Sentinel errors, mapped to envelope codes at the HTTP boundary.
var (
	ErrVariantNotFound     = errors.New("inventory: variant not found")
	ErrVariantExists       = errors.New("inventory: stock record already exists")
	ErrReasonRequired      = errors.New("inventory: adjustment reason required")
	ErrQuantityRequired    = errors.New("inventory: quantity must be positive")
	ErrImportPriceRequired = errors.New("inventory: import price must be positive")
	ErrWouldGoNegative     = errors.New("inventory: stock would go negative")
	ErrInsufficientStock   = errors.New("inventory: insufficient available stock")
	ErrInvalidState        = errors.New("inventory: stock invariant violated")
	ErrReservationNotFound = errors.New("inventory: reservation not found")
	ErrReservationExists   = errors.New("inventory: order already holds a reservation")
	ErrAlreadyReleased     = errors.New("inventory: reservation already released")
	ErrAlreadyConfirmed    = errors.New("inventory: reservation already confirmed")
)
