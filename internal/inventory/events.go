package inventory

import (
	"context"
	"log/slog"
)

// LedgerCommittedEvent is emitted after every committed ledger mutation.
// Handlers run outside the database transaction and must not assume ordering
// beyond a single variant.
type LedgerCommittedEvent struct {
	Record      StockRecord
	Transaction Transaction
}

// EventHandler receives committed ledger events for downstream integration
// (order service, analytics, low-stock alerting).
type EventHandler interface {
	HandleLedgerCommitted(ctx context.Context, evt LedgerCommittedEvent) error
}

// LogEventHandler writes committed events to the structured log. It is the
// default handler until a real downstream consumer is wired.
type LogEventHandler struct {
	Logger *slog.Logger
}

// HandleLedgerCommitted implements EventHandler.
func (h LogEventHandler) HandleLedgerCommitted(ctx context.Context, evt LedgerCommittedEvent) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("ledger committed",
		slog.String("variant_id", evt.Record.VariantID.String()),
		slog.String("tx_type", string(evt.Transaction.Type)),
		slog.Int64("quantity_delta", evt.Transaction.QuantityDelta),
		slog.Int64("on_hand", evt.Record.QuantityOnHand),
		slog.Int64("reserved", evt.Record.QuantityReserved),
	)
	return nil
}
