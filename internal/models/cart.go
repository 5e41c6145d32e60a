package models

import "github.com/shopspring/decimal"

// CartLine is one cart row joined with its product.
type CartLine struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     *string         `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) ImageName() string {
	if l.Image == nil {
		return ""
	}
	return *l.Image
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	Lines []CartLine      `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// NewCart sums price*quantity over lines.
func NewCart(lines []CartLine) *Cart {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return &Cart{Lines: lines, Total: total}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
