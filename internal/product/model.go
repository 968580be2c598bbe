package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type ListOptions struct {
	Category *string
	Search   *string
	InStock  *bool
	Limit    int32
	Page     int32
}
