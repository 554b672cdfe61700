// Package catalog holds the lightweight variant reference the inventory
// service keeps for search and validation. The product service owns the full
// catalog (pricing, media, descriptions); inventory only mirrors the fields
// it needs and validates them at the boundary instead of trusting the UI.
package catalog

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// VariantRef identifies a sellable SKU of a product.
type VariantRef struct {
	VariantID   uuid.UUID         `json:"variantId" validate:"required"`
	SKU         string            `json:"sku" validate:"required,max=64"`
	ProductName string            `json:"productName" validate:"required,max=255"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

var validate = validator.New()

// Validate checks the reference fields and its attribute map against the schema.
func (v VariantRef) Validate(schema Schema) error {
	if err := validate.Struct(v); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			return fmt.Errorf("catalog: invalid variant field %s: %w", fieldErrs[0].Field(), ErrInvalidVariant)
		}
		return err
	}
	return schema.Validate(v.Attributes)
}
