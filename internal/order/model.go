package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID         uint            `json:"id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	Items      []OrderItem     `json:"items"`
}

type OrderItem struct {
	ID          uint            `json:"id"`
	OrderID     uint            `json:"order_id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// LineInput is a requested (product, quantity) pair before pricing.
type LineInput struct {
	ProductID uint
	Quantity  int
}

type OrderSortField string

const (
	OrderSortFieldCreatedAt OrderSortField = "CREATED_AT"
	OrderSortFieldTotal     OrderSortField = "TOTAL"
)

type SortDirection string

const (
	SortDirectionAsc  SortDirection = "ASC"
	SortDirectionDesc SortDirection = "DESC"
)

type OrderFilterInput struct {
	DateFrom *time.Time
	DateTo   *time.Time
}

type OrderSortInput struct {
	Field     OrderSortField
	Direction SortDirection
}
