package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cafeteria-pos/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	GetAll(ctx context.Context, opts ListOptions) ([]Product, error)
	GetByID(ctx context.Context, id uint) (*Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id uint) error
	DecrementStock(ctx context.Context, id uint, amount int) (*Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetAll(ctx context.Context, opts ListOptions) ([]Product, error) {
	query := `
		SELECT id, name, category, price, stock, created_at, updated_at
		FROM products
		WHERE 1=1
	`

	args := []any{}
	argIndex := 1

	if opts.Category != nil && *opts.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, *opts.Category)
		argIndex++
	}

	if opts.Search != nil && *opts.Search != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", argIndex)
		args = append(args, "%"+*opts.Search+"%")
		argIndex++
	}

	if opts.InStock != nil && *opts.InStock {
		query += " AND stock > 0"
	}

	query += " ORDER BY id"

	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Product, error) {
	query := `
		SELECT id, name, category, price, stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p Product
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (name, category, price, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, p.Name, p.Category, p.Price, p.Stock).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	return p, err
}

func (r *repository) Update(ctx context.Context, p Product) (Product, error) {
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $1, category = $2, price = $3, stock = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING created_at, updated_at
	`, p.Name, p.Category, p.Price, p.Stock, p.ID).
		Scan(&p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, err
	}

	return p, nil
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// DecrementStock reduces stock by amount in a single conditional update.
// The stock >= amount guard keeps concurrent decrements from driving
// stock below zero; the row lock taken by UPDATE serializes them.
func (r *repository) DecrementStock(ctx context.Context, id uint, amount int) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "DecrementStock"),
		zap.Uint("product_id", id),
		zap.Int("amount", amount),
	)

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var p Product
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
		RETURNING id, name, category, price, stock, created_at, updated_at
	`, amount, id).
		Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		// Guard did not match: either the product is gone or stock is short.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}

		log.Warn("stock decrement rejected")
		return nil, ErrInsufficientStock
	}
	if err != nil {
		log.Error("failed to decrement stock", zap.Error(err))
		return nil, err
	}

	return &p, nil
}
