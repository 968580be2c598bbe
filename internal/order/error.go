package order

import "errors"

var (
	// -- Validation & Input --
	ErrEmptyOrder      = errors.New("order has no lines")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// -- Resource State --
	ErrOrderNotFound = errors.New("order not found")

	// -- Concurrency --
	ErrConcurrentModification = errors.New("stock changed concurrently")
)
