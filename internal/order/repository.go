package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cafeteria-pos/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	CreateOrderTx(ctx context.Context, o *Order) error
	FetchOrders(ctx context.Context, filter *OrderFilterInput, sort *OrderSortInput, limit, offset int32) ([]*Order, error)
	GetOrderDetail(ctx context.Context, orderID uint) (*Order, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// CreateOrderTx persists the order header, its items and the stock
// decrements as one transaction. Every decrement is guarded by
// stock >= quantity; a guard that matches no row means another
// placement won the race since the caller validated stock, reported
// as ErrConcurrentModification so the caller may retry.
func (r *repository) CreateOrderTx(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
		zap.Int("item_count", len(o.Items)),
	)

	log.Debug("starting order transaction")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			} else {
				log.Debug("transaction rolled back")
			}
		}
	}()

	// 1. Insert order header
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (total_price, created_at)
		VALUES ($1, $2)
		RETURNING id
	`, o.TotalPrice, o.CreatedAt).Scan(&o.ID)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	// 2. Insert order items + deduct stock
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID

		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1
		`, item.Quantity, item.ProductID)
		if err != nil {
			log.Error("failed to deduct stock",
				zap.Int("item_index", i),
				zap.Uint("product_id", item.ProductID),
				zap.Error(err),
			)
			return err
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			log.Warn("stock deduction lost race",
				zap.Uint("product_id", item.ProductID),
			)
			return fmt.Errorf("%w: product %q", ErrConcurrentModification, item.ProductName)
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
			item.Subtotal,
		).Scan(&item.ID)
		if err != nil {
			log.Error("failed to insert order item",
				zap.Int("item_index", i),
				zap.Uint("product_id", item.ProductID),
				zap.Error(err),
			)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order transaction", zap.Error(err))
		return err
	}

	committed = true
	log.Info("order transaction committed",
		zap.Uint("order_id", o.ID),
		zap.String("total_price", o.TotalPrice.String()),
	)

	return nil
}

func (r *repository) FetchOrders(
	ctx context.Context,
	filter *OrderFilterInput,
	sort *OrderSortInput,
	limit, offset int32,
) ([]*Order, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("method", "FetchOrders"),
		zap.Int32("limit", limit),
		zap.Int32("offset", offset),
	)

	log.Debug("start fetch orders")

	// ---------- BASE QUERY ----------
	query := `
		SELECT o.id, o.total_price, o.created_at
		FROM orders o
		WHERE 1=1
	`

	args := []any{}
	argIndex := 1

	// ---------- FILTERING ----------
	if filter != nil {
		if filter.DateFrom != nil {
			query += fmt.Sprintf(" AND o.created_at >= $%d", argIndex)
			args = append(args, *filter.DateFrom)
			argIndex++
		}

		if filter.DateTo != nil {
			query += fmt.Sprintf(" AND o.created_at <= $%d", argIndex)
			args = append(args, *filter.DateTo)
			argIndex++
		}
	}

	// ---------- SORTING ----------
	orderBy := "o.created_at DESC"

	if sort != nil {
		dir := strings.ToUpper(string(sort.Direction))
		if dir != "ASC" && dir != "DESC" {
			dir = "DESC"
		}

		switch sort.Field {
		case OrderSortFieldTotal:
			orderBy = "o.total_price " + dir
		case OrderSortFieldCreatedAt:
			orderBy = "o.created_at " + dir
		}
	}

	query += " ORDER BY " + orderBy

	// ---------- PAGINATION ----------
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*Order

	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.TotalPrice, &o.CreatedAt); err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, &o)
	}

	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, err
	}

	log.Info("fetch orders success", zap.Int("count", len(orders)))

	return orders, nil
}

// GetOrderDetail loads an order with its items joined to product names,
// the shape the details page renders.
func (r *repository) GetOrderDetail(ctx context.Context, orderID uint) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, total_price, created_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(&o.ID, &o.TotalPrice, &o.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price, oi.subtotal, p.name
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.ProductName,
		); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}
