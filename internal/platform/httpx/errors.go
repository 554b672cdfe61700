package httpx

import "net/http"

// Error codes surfaced in the response envelope. The storefront keys its
// field-level messages off these, so they are part of the API contract.
const (
	CodeReasonRequired      = "reasonRequired"
	CodeQuantityRequired    = "quantityRequired"
	CodeImportPriceRequired = "importPriceRequired"
	CodeValidation          = "validation"
	CodeNotFound            = "notFound"
	CodeInsufficientStock   = "insufficientStock"
	CodeWouldGoNegative     = "wouldGoNegative"
	CodeInvalidState        = "invalidState"
	CodeAlreadyReleased     = "alreadyReleased"
	CodeAlreadyConfirmed    = "alreadyConfirmed"
	CodeDuplicateRequest    = "duplicateRequest"
	CodeInternal            = "internal"
)

// Internal sends a generic 500 envelope without leaking details.
func Internal(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
