package order

import (
	"cafeteria-pos/internal/product"

	"github.com/shopspring/decimal"
)

// PricedLine pairs a resolved product with its requested quantity.
type PricedLine struct {
	Product  *product.Product
	Quantity int
}

// PriceLine computes unit price times quantity with exact decimal
// arithmetic. Quantities must be positive.
func PriceLine(p *product.Product, quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, ErrInvalidQuantity
	}

	return p.Price.Mul(decimal.NewFromInt(int64(quantity))), nil
}

// PriceOrder sums PriceLine over all lines in input order.
func PriceOrder(lines []PricedLine) (decimal.Decimal, error) {
	if len(lines) == 0 {
		return decimal.Zero, ErrEmptyOrder
	}

	total := decimal.Zero
	for _, line := range lines {
		subtotal, err := PriceLine(line.Product, line.Quantity)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(subtotal)
	}

	return total, nil
}
