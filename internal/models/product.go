package models

import "github.com/shopspring/decimal"

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       *string         `json:"image,omitempty"`
}

// ImageName returns the stored image filename or "" when none is set.
func (p *Product) ImageName() string {
	if p.Image == nil {
		return ""
	}
	return *p.Image
}

// ProductInput carries the admin form fields after parsing.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}
