package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aurea-commerce/aurea-inventory/internal/shared"
)

// StockFilter filters the stock listing.
type StockFilter struct {
	// Keyword matches SKU or product name, case-insensitively.
	Keyword string
	// LowStockBelow, when positive, keeps only rows whose available stock is
	// strictly below the threshold. Advisory back-office filter.
	LowStockBelow int64
	// IncludeArchived keeps soft-archived variants in the listing.
	IncludeArchived bool
	Page            shared.PageRequest
}

// RepositoryPort abstracts persistence for the service and query facade.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetStock(ctx context.Context, variantID uuid.UUID) (StockRecord, error)
	ListStock(ctx context.Context, filter StockFilter) ([]StockRecord, int, error)
	ListTransactions(ctx context.Context, variantID uuid.UUID, page shared.PageRequest) ([]Transaction, int, error)
	ReplayTransactions(ctx context.Context, variantID uuid.UUID) ([]Transaction, error)
	ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]Reservation, error)
	ListVariantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// TxRepository exposes the operations available inside one ledger transaction.
// Implementations must lock the stock row for the duration of the transaction
// so same-variant operations serialize.
type TxRepository interface {
	GetStockForUpdate(ctx context.Context, variantID uuid.UUID) (StockRecord, error)
	InsertStock(ctx context.Context, record StockRecord) error
	UpdateStock(ctx context.Context, record StockRecord) error
	InsertTransaction(ctx context.Context, txn Transaction) (Transaction, error)
	GetReservationForUpdate(ctx context.Context, variantID uuid.UUID, orderRef string) (Reservation, error)
	InsertReservation(ctx context.Context, res Reservation) (Reservation, error)
	TransitionReservation(ctx context.Context, id int64, from, to ReservationStatus) error
}
