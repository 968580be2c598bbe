package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cafeteria-pos/internal/logger"
	"cafeteria-pos/internal/metrics"
	"cafeteria-pos/internal/product"

	"go.uber.org/zap"
)

type Service interface {
	PlaceOrder(ctx context.Context, lines []LineInput) (*Order, error)
	GetOrders(ctx context.Context, filter *OrderFilterInput, sort *OrderSortInput, limit, page *int32) ([]*Order, error)
	GetOrderDetail(ctx context.Context, orderID uint) (*Order, error)
}

type service struct {
	repo     Repository
	products product.Repository
	stats    *metrics.OrderStats
}

func NewService(repo Repository, products product.Repository, stats *metrics.OrderStats) Service {
	if stats == nil {
		stats = &metrics.OrderStats{}
	}
	return &service{
		repo:     repo,
		products: products,
		stats:    stats,
	}
}

// PlaceOrder validates the requested lines against the catalog, prices
// them, and persists order + items + stock decrements atomically.
// A placement that loses the stock race inside the transaction is
// retried once before the error surfaces.
func (s *service) PlaceOrder(ctx context.Context, lines []LineInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.Int("line_count", len(lines)),
	)

	log.Info("place order started")

	timer := metrics.StartTimer()

	o, err := s.placeOrderOnce(ctx, lines)
	if errors.Is(err, ErrConcurrentModification) {
		s.stats.Retried.Inc()
		log.Warn("placement lost stock race, retrying once", zap.Error(err))
		o, err = s.placeOrderOnce(ctx, lines)
	}

	if err != nil {
		s.stats.Rejected.Inc()
		log.Warn("place order rejected",
			zap.Error(err),
			zap.Duration("duration", timer.Duration()),
		)
		return nil, err
	}

	s.stats.Placed.Inc()
	log.Info("place order success",
		zap.Uint("order_id", o.ID),
		zap.String("total_price", o.TotalPrice.String()),
		zap.Duration("duration", timer.Duration()),
	)

	return o, nil
}

func (s *service) placeOrderOnce(ctx context.Context, lines []LineInput) (*Order, error) {
	// 1. Reject empty requests
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	// 2. Resolve products, validate quantities and stock before any mutation
	priced := make([]PricedLine, 0, len(lines))
	items := make([]OrderItem, 0, len(lines))

	for _, line := range lines {
		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}

		if line.Quantity > p.Stock {
			return nil, fmt.Errorf("%w: product %q", product.ErrInsufficientStock, p.Name)
		}

		subtotal, err := PriceLine(p, line.Quantity)
		if err != nil {
			return nil, err
		}

		priced = append(priced, PricedLine{Product: p, Quantity: line.Quantity})
		items = append(items, OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    line.Quantity,
			UnitPrice:   p.Price,
			Subtotal:    subtotal,
		})
	}

	// 3. Price the whole order
	total, err := PriceOrder(priced)
	if err != nil {
		return nil, err
	}

	// 4. Persist atomically
	o := &Order{
		TotalPrice: total,
		CreatedAt:  time.Now(),
		Items:      items,
	}

	if err := s.repo.CreateOrderTx(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

func (s *service) GetOrders(
	ctx context.Context,
	filter *OrderFilterInput,
	sort *OrderSortInput,
	limit, page *int32,
) ([]*Order, error) {

	// ---------- PAGINATION ----------
	finalLimit := int32(20)
	finalPage := int32(1)

	if limit != nil && *limit > 0 {
		finalLimit = *limit
	}
	if page != nil && *page > 0 {
		finalPage = *page
	}
	if finalLimit > 100 {
		finalLimit = 100
	}

	offset := (finalPage - 1) * finalLimit

	return s.repo.FetchOrders(ctx, filter, sort, finalLimit, offset)
}

func (s *service) GetOrderDetail(ctx context.Context, orderID uint) (*Order, error) {
	return s.repo.GetOrderDetail(ctx, orderID)
}
