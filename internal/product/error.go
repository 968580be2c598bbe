package product

import "errors"

var (
	// -- Resource State --
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")

	// -- Validation & Input --
	ErrEmptyName     = errors.New("product name cannot be empty")
	ErrEmptyCategory = errors.New("product category cannot be empty")
	ErrNegativePrice = errors.New("product price cannot be negative")
	ErrNegativeStock = errors.New("product stock cannot be negative")
	ErrInvalidAmount = errors.New("decrement amount must be positive")
)
