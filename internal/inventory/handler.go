package inventory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aurea-commerce/aurea-inventory/internal/catalog"
	"github.com/aurea-commerce/aurea-inventory/internal/platform/httpx"
	"github.com/aurea-commerce/aurea-inventory/internal/shared"
)

const idempotencyHeader = "Idempotency-Key"

// Handler wires the inventory JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	query    *Query
	validate *validator.Validate
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service, query *Query) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, query: query, validate: validator.New()}
}

type createStockRequest struct {
	VariantID   string            `json:"variantId" validate:"required,uuid"`
	SKU         string            `json:"sku" validate:"required,max=64"`
	ProductName string            `json:"productName" validate:"required,max=255"`
	Attributes  map[string]string `json:"attributes"`
	Quantity    int64             `json:"quantity" validate:"gte=0"`
	UnitCost    int64             `json:"unitCost" validate:"gte=0"`
	Note        string            `json:"note" validate:"max=500"`
}

type adjustRequest struct {
	QuantityDelta int64  `json:"quantityDelta" validate:"required"`
	Reason        string `json:"reason" validate:"max=500"`
	Kind          string `json:"kind" validate:"omitempty,oneof=ADJUST DAMAGED RETURN"`
}

type importRequest struct {
	Quantity    int64  `json:"quantity"`
	ImportPrice int64  `json:"importPrice"`
	Note        string `json:"note" validate:"max=500"`
}

type reserveRequest struct {
	OrderRef   string `json:"orderRef" validate:"required,max=64"`
	Quantity   int64  `json:"quantity"`
	TTLSeconds int64  `json:"ttlSeconds" validate:"gte=0"`
}

type reservationRequest struct {
	OrderRef string `json:"orderRef" validate:"required,max=64"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "malformed request body")
		return
	}
	if msg, ok := h.checkStruct(req); !ok {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, msg)
		return
	}
	variantID, err := uuid.Parse(req.VariantID)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "variantId must be a UUID")
		return
	}
	result, err := h.service.CreateStock(r.Context(), OpeningInput{
		Variant: catalog.VariantRef{
			VariantID:   variantID,
			SKU:         req.SKU,
			ProductName: req.ProductName,
			Attributes:  req.Attributes,
		},
		Quantity:       req.Quantity,
		UnitCost:       req.UnitCost,
		Note:           req.Note,
		Actor:          shared.ActorFromContext(r.Context()),
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Data(w, http.StatusCreated, mutationView(result))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := StockFilter{
		Keyword:         q.Get("keyword"),
		IncludeArchived: q.Get("includeArchived") == "true",
		Page:            shared.ParsePageRequest(q),
	}
	if v, err := strconv.ParseInt(q.Get("lowStockBelow"), 10, 64); err == nil && v > 0 {
		filter.LowStockBelow = v
	}
	records, pagination, err := h.query.ListStock(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	views := make([]stockView, 0, len(records))
	for _, rec := range records {
		views = append(views, newStockView(rec))
	}
	httpx.Page(w, views, paginationMeta(pagination))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	variantID, ok := h.variantID(w, r)
	if !ok {
		return
	}
	rec, err := h.query.GetStock(r.Context(), variantID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, newStockView(rec))
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	variantID, ok := h.variantID(w, r)
	if !ok {
		return
	}
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "malformed request body")
		return
	}
	if msg, ok := h.checkStruct(req); !ok {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, msg)
		return
	}
	result, err := h.service.Adjust(r.Context(), AdjustmentInput{
		VariantID:      variantID,
		QuantityDelta:  req.QuantityDelta,
		Kind:           TransactionType(req.Kind),
		Reason:         req.Reason,
		Actor:          shared.ActorFromContext(r.Context()),
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, mutationView(result))
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	variantID, ok := h.variantID(w, r)
	if !ok {
		return
	}
	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "malformed request body")
		return
	}
	if msg, ok := h.checkStruct(req); !ok {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, msg)
		return
	}
	result, err := h.service.Import(r.Context(), ImportInput{
		VariantID:      variantID,
		Quantity:       req.Quantity,
		UnitCost:       req.ImportPrice,
		Note:           req.Note,
		Actor:          shared.ActorFromContext(r.Context()),
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, mutationView(result))
}

func (h *Handler) handleReserve(w http.ResponseWriter, r *http.Request) {
	variantID, ok := h.variantID(w, r)
	if !ok {
		return
	}
	var req reserveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "malformed request body")
		return
	}
	if msg, ok := h.checkStruct(req); !ok {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, msg)
		return
	}
	result, err := h.service.Reserve(r.Context(), ReserveInput{
		VariantID:      variantID,
		OrderRef:       req.OrderRef,
		Quantity:       req.Quantity,
		TTL:            time.Duration(req.TTLSeconds) * time.Second,
		Actor:          shared.ActorFromContext(r.Context()),
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, mutationView(result))
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	h.handleReservationTransition(w, r, h.service.Release)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	h.handleReservationTransition(w, r, h.service.Confirm)
}

func (h *Handler) handleReservationTransition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, input ReservationInput) (*MutationResult, error)) {
	variantID, ok := h.variantID(w, r)
	if !ok {
		return
	}
	var req reservationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "malformed request body")
		return
	}
	if msg, ok := h.checkStruct(req); !ok {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, msg)
		return
	}
	result, err := op(r.Context(), ReservationInput{
		VariantID:      variantID,
		OrderRef:       req.OrderRef,
		Actor:          shared.ActorFromContext(r.Context()),
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, mutationView(result))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	variantID, ok := h.variantID(w, r)
	if !ok {
		return
	}
	page := shared.ParsePageRequest(r.URL.Query())
	txns, pagination, err := h.query.History(r.Context(), variantID, page)
	if err != nil {
		h.respondError(w, err)
		return
	}
	views := make([]transactionView, 0, len(txns))
	for _, txn := range txns {
		views = append(views, newTransactionView(txn))
	}
	httpx.Page(w, views, paginationMeta(pagination))
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	variantID, ok := h.variantID(w, r)
	if !ok {
		return
	}
	result, err := h.query.Reconcile(r.Context(), variantID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, newReconcileView(result))
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	variantID, ok := h.variantID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.ArchiveStock(r.Context(), variantID, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Data(w, http.StatusOK, newStockView(rec))
}

func (h *Handler) variantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "variantID"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "variantID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) checkStruct(req any) (string, bool) {
	if err := h.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return "invalid field: " + fieldErrs[0].Field(), false
		}
		return "invalid request", false
	}
	return "", true
}

// respondError maps domain errors onto envelope codes. Validation and
// invariant failures surface verbatim; everything else is a generic 500.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrReasonRequired):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeReasonRequired, err.Error())
	case errors.Is(err, ErrQuantityRequired):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeQuantityRequired, err.Error())
	case errors.Is(err, ErrImportPriceRequired):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeImportPriceRequired, err.Error())
	case errors.Is(err, catalog.ErrInvalidVariant), errors.Is(err, catalog.ErrUnknownAttribute), errors.Is(err, catalog.ErrInvalidAttributeValue):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, err.Error())
	case errors.Is(err, ErrVariantNotFound), errors.Is(err, ErrReservationNotFound):
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Error(w, http.StatusConflict, httpx.CodeInsufficientStock, err.Error())
	case errors.Is(err, ErrWouldGoNegative):
		httpx.Error(w, http.StatusConflict, httpx.CodeWouldGoNegative, err.Error())
	case errors.Is(err, ErrAlreadyReleased):
		httpx.Error(w, http.StatusConflict, httpx.CodeAlreadyReleased, err.Error())
	case errors.Is(err, ErrAlreadyConfirmed):
		httpx.Error(w, http.StatusConflict, httpx.CodeAlreadyConfirmed, err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Error(w, http.StatusConflict, httpx.CodeDuplicateRequest, err.Error())
	case errors.Is(err, ErrVariantExists), errors.Is(err, ErrReservationExists), errors.Is(err, ErrInvalidState):
		httpx.Error(w, http.StatusConflict, httpx.CodeInvalidState, err.Error())
	default:
		h.logger.Error("inventory operation failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
