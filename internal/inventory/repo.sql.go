package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurea-commerce/aurea-inventory/internal/platform/db"
	"github.com/aurea-commerce/aurea-inventory/internal/shared"
)

// Repository persists the ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const stockColumns = `variant_id, sku, product_name, attributes, qty_on_hand, qty_reserved, last_import_cost, archived, created_at, updated_at`

func scanStock(row pgx.Row) (StockRecord, error) {
	var rec StockRecord
	var attrs []byte
	err := row.Scan(&rec.VariantID, &rec.SKU, &rec.ProductName, &attrs, &rec.QuantityOnHand, &rec.QuantityReserved, &rec.LastImportCost, &rec.Archived, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return StockRecord{}, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &rec.Attributes); err != nil {
			return StockRecord{}, fmt.Errorf("inventory: decode attributes: %w", err)
		}
	}
	return rec, nil
}

func (r *Repository) GetStock(ctx context.Context, variantID uuid.UUID) (StockRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+stockColumns+` FROM inventory_stock WHERE variant_id=$1`, variantID)
	rec, err := scanStock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockRecord{}, ErrVariantNotFound
	}
	return rec, err
}

func (r *Repository) ListStock(ctx context.Context, filter StockFilter) ([]StockRecord, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if !filter.IncludeArchived {
		where = append(where, "NOT archived")
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		args = append(args, "%"+kw+"%")
		where = append(where, fmt.Sprintf("(sku ILIKE $%d OR product_name ILIKE $%d)", len(args), len(args)))
	}
	if filter.LowStockBelow > 0 {
		args = append(args, filter.LowStockBelow)
		where = append(where, fmt.Sprintf("(qty_on_hand - qty_reserved) < $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_stock WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Page.Size, filter.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM inventory_stock WHERE %s ORDER BY sku ASC LIMIT $%d OFFSET $%d`,
		stockColumns, cond, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := []StockRecord{}
	for rows.Next() {
		rec, err := scanStock(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

const txnColumns = `id, variant_id, tx_type, quantity_delta, before_qty, after_qty, before_reserved, after_reserved, unit_cost, reference, note, performed_by, created_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var txn Transaction
	var txType string
	err := row.Scan(&txn.ID, &txn.VariantID, &txType, &txn.QuantityDelta, &txn.BeforeQuantity, &txn.AfterQuantity, &txn.BeforeReserved, &txn.AfterReserved, &txn.UnitCost, &txn.Reference, &txn.Note, &txn.PerformedBy, &txn.CreatedAt)
	txn.Type = TransactionType(txType)
	return txn, err
}

func (r *Repository) ListTransactions(ctx context.Context, variantID uuid.UUID, page shared.PageRequest) ([]Transaction, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_transactions WHERE variant_id=$1`, variantID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+txnColumns+` FROM inventory_transactions
WHERE variant_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, variantID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	txns := []Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// ReplayTransactions returns every ledger row for the variant in creation
// order, for the reconciliation replay.
func (r *Repository) ReplayTransactions(ctx context.Context, variantID uuid.UUID) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+txnColumns+` FROM inventory_transactions
WHERE variant_id=$1 ORDER BY created_at ASC, id ASC`, variantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	txns := []Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

const reservationColumns = `id, order_ref, variant_id, quantity, status, reserved_at, expires_at, updated_at`

func scanReservation(row pgx.Row) (Reservation, error) {
	var res Reservation
	var status string
	err := row.Scan(&res.ID, &res.OrderRef, &res.VariantID, &res.Quantity, &status, &res.ReservedAt, &res.ExpiresAt, &res.UpdatedAt)
	res.Status = ReservationStatus(status)
	return res, err
}

func (r *Repository) ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+reservationColumns+` FROM inventory_reservations
WHERE status=$1 AND expires_at <= $2 ORDER BY expires_at ASC LIMIT $3`, string(ReservationActive), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	reservations := []Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func (r *Repository) ListVariantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT variant_id FROM inventory_stock WHERE NOT archived ORDER BY variant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *txRepository) GetStockForUpdate(ctx context.Context, variantID uuid.UUID) (StockRecord, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+stockColumns+` FROM inventory_stock WHERE variant_id=$1 FOR UPDATE`, variantID)
	rec, err := scanStock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockRecord{}, ErrVariantNotFound
	}
	return rec, err
}

func (r *txRepository) InsertStock(ctx context.Context, rec StockRecord) error {
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `INSERT INTO inventory_stock (variant_id, sku, product_name, attributes, qty_on_hand, qty_reserved, last_import_cost, archived, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())`, rec.VariantID, rec.SKU, rec.ProductName, attrs, rec.QuantityOnHand, rec.QuantityReserved, rec.LastImportCost, rec.Archived)
	if isUniqueViolation(err) {
		return ErrVariantExists
	}
	return err
}

func (r *txRepository) UpdateStock(ctx context.Context, rec StockRecord) error {
	tag, err := r.tx.Exec(ctx, `UPDATE inventory_stock SET qty_on_hand=$2, qty_reserved=$3, last_import_cost=$4, archived=$5, updated_at=NOW()
WHERE variant_id=$1`, rec.VariantID, rec.QuantityOnHand, rec.QuantityReserved, rec.LastImportCost, rec.Archived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVariantNotFound
	}
	return nil
}

func (r *txRepository) InsertTransaction(ctx context.Context, txn Transaction) (Transaction, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_transactions (variant_id, tx_type, quantity_delta, before_qty, after_qty, before_reserved, after_reserved, unit_cost, reference, note, performed_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW()) RETURNING id, created_at`,
		txn.VariantID, string(txn.Type), txn.QuantityDelta, txn.BeforeQuantity, txn.AfterQuantity, txn.BeforeReserved, txn.AfterReserved, txn.UnitCost, txn.Reference, txn.Note, txn.PerformedBy).
		Scan(&txn.ID, &txn.CreatedAt)
	return txn, err
}

func (r *txRepository) GetReservationForUpdate(ctx context.Context, variantID uuid.UUID, orderRef string) (Reservation, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+reservationColumns+` FROM inventory_reservations
WHERE variant_id=$1 AND order_ref=$2 FOR UPDATE`, variantID, orderRef)
	res, err := scanReservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, ErrReservationNotFound
	}
	return res, err
}

func (r *txRepository) InsertReservation(ctx context.Context, res Reservation) (Reservation, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_reservations (order_ref, variant_id, quantity, status, reserved_at, expires_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW()) RETURNING id`, res.OrderRef, res.VariantID, res.Quantity, string(res.Status), res.ReservedAt, res.ExpiresAt).Scan(&res.ID)
	if isUniqueViolation(err) {
		return Reservation{}, ErrReservationExists
	}
	return res, err
}

// TransitionReservation moves a reservation between states, guarding the
// expected source state so concurrent transitions cannot both win.
func (r *txRepository) TransitionReservation(ctx context.Context, id int64, from, to ReservationStatus) error {
	if !from.CanTransition(to) {
		return ErrInvalidState
	}
	tag, err := r.tx.Exec(ctx, `UPDATE inventory_reservations SET status=$3, updated_at=NOW()
WHERE id=$1 AND status=$2`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
