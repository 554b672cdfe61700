package inventory

import (
	"time"

	"github.com/aurea-commerce/aurea-inventory/internal/platform/httpx"
	"github.com/aurea-commerce/aurea-inventory/internal/shared"
)

type stockView struct {
	VariantID        string            `json:"variantId"`
	SKU              string            `json:"sku"`
	ProductName      string            `json:"productName"`
	Attributes       map[string]string `json:"attributes,omitempty"`
	QuantityOnHand   int64             `json:"quantityOnHand"`
	QuantityReserved int64             `json:"quantityReserved"`
	AvailableStock   int64             `json:"availableStock"`
	LastImportCost   int64             `json:"lastImportCost,omitempty"`
	Archived         bool              `json:"archived,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func newStockView(rec StockRecord) stockView {
	return stockView{
		VariantID:        rec.VariantID.String(),
		SKU:              rec.SKU,
		ProductName:      rec.ProductName,
		Attributes:       rec.Attributes,
		QuantityOnHand:   rec.QuantityOnHand,
		QuantityReserved: rec.QuantityReserved,
		AvailableStock:   rec.AvailableStock(),
		LastImportCost:   rec.LastImportCost,
		Archived:         rec.Archived,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

type transactionView struct {
	ID             int64     `json:"id"`
	VariantID      string    `json:"variantId"`
	Type           string    `json:"type"`
	QuantityDelta  int64     `json:"quantityDelta"`
	ReservedDelta  int64     `json:"reservedDelta"`
	BeforeQuantity int64     `json:"beforeQuantity"`
	AfterQuantity  int64     `json:"afterQuantity"`
	BeforeReserved int64     `json:"beforeReserved"`
	AfterReserved  int64     `json:"afterReserved"`
	UnitCost       int64     `json:"unitCost,omitempty"`
	Reference      string    `json:"reference,omitempty"`
	Note           string    `json:"note,omitempty"`
	PerformedBy    string    `json:"performedBy"`
	CreatedAt      time.Time `json:"createdAt"`
}

func newTransactionView(txn Transaction) transactionView {
	return transactionView{
		ID:             txn.ID,
		VariantID:      txn.VariantID.String(),
		Type:           string(txn.Type),
		QuantityDelta:  txn.QuantityDelta,
		ReservedDelta:  txn.ReservedDelta(),
		BeforeQuantity: txn.BeforeQuantity,
		AfterQuantity:  txn.AfterQuantity,
		BeforeReserved: txn.BeforeReserved,
		AfterReserved:  txn.AfterReserved,
		UnitCost:       txn.UnitCost,
		Reference:      txn.Reference,
		Note:           txn.Note,
		PerformedBy:    txn.PerformedBy,
		CreatedAt:      txn.CreatedAt,
	}
}

type costWarningView struct {
	LastKnownCost int64 `json:"lastKnownCost"`
	ImportCost    int64 `json:"importCost"`
}

type mutationResultView struct {
	Stock       stockView        `json:"stock"`
	Transaction *transactionView `json:"transaction,omitempty"`
	CostWarning *costWarningView `json:"costWarning,omitempty"`
}

func mutationView(res *MutationResult) mutationResultView {
	view := mutationResultView{Stock: newStockView(res.Record)}
	if res.Transaction != nil {
		txn := newTransactionView(*res.Transaction)
		view.Transaction = &txn
	}
	if res.CostWarning != nil {
		view.CostWarning = &costWarningView{
			LastKnownCost: res.CostWarning.LastKnownCost,
			ImportCost:    res.CostWarning.ImportCost,
		}
	}
	return view
}

type reconcileView struct {
	VariantID        string `json:"variantId"`
	TransactionCount int    `json:"transactionCount"`
	ReplayedOnHand   int64  `json:"replayedOnHand"`
	ReplayedReserved int64  `json:"replayedReserved"`
	RecordOnHand     int64  `json:"recordOnHand"`
	RecordReserved   int64  `json:"recordReserved"`
	Consistent       bool   `json:"consistent"`
}

func newReconcileView(result ReconcileResult) reconcileView {
	return reconcileView{
		VariantID:        result.VariantID.String(),
		TransactionCount: result.TransactionCount,
		ReplayedOnHand:   result.ReplayedOnHand,
		ReplayedReserved: result.ReplayedReserved,
		RecordOnHand:     result.RecordOnHand,
		RecordReserved:   result.RecordReserved,
		Consistent:       result.Consistent,
	}
}

func paginationMeta(p shared.Pagination) httpx.Meta {
	return httpx.Meta{Page: p.Page, Size: p.Size, TotalElements: p.TotalElements}
}
