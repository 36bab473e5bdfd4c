package domain

import (
	"fmt"
	"math"
	"strings"
)

// Product is the display snapshot copied into a line item when it is added.
// The cart never re-prices an item from a newer product read.
type Product struct {
	ID        string  `json:"id" bson:"id"`
	Name      string  `json:"name" bson:"name"`
	UnitPrice float64 `json:"unit_price" bson:"unit_price"`
	Image     string  `json:"image,omitempty" bson:"image,omitempty"`
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if p.UnitPrice < 0 || math.IsNaN(p.UnitPrice) || math.IsInf(p.UnitPrice, 0) {
		return fmt.Errorf("%w: unit price must be a non-negative number", ErrValidation)
	}
	return nil
}
