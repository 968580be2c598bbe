package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"cafeteria-pos/internal/metrics"
	"cafeteria-pos/internal/product"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateOrderTx(ctx context.Context, o *Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockRepository) FetchOrders(ctx context.Context, filter *OrderFilterInput, sort *OrderSortInput, limit, offset int32) ([]*Order, error) {
	args := m.Called(ctx, filter, sort, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

func (m *MockRepository) GetOrderDetail(ctx context.Context, orderID uint) (*Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, opts product.ListOptions) ([]product.Product, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uint) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, p product.Product) (product.Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(product.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, p product.Product) (product.Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(product.Product), args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, id uint, amount int) (*product.Product, error) {
	args := m.Called(ctx, id, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func stockedProduct(id uint, name, price string, stock int) *product.Product {
	return &product.Product{
		ID:       id,
		Name:     name,
		Category: "Drinks",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
}

func TestService_PlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success computes total and persists atomically", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepository)
		svc := NewService(repo, products, nil)

		// Product{id=1, unitPrice=10.00, quantityOnHand=5}
		products.On("GetByID", ctx, uint(1)).Return(stockedProduct(1, "Coffee", "10.00", 5), nil)

		repo.On("CreateOrderTx", ctx, mock.MatchedBy(func(o *Order) bool {
			return o.TotalPrice.Equal(decimal.RequireFromString("30.00")) &&
				len(o.Items) == 1 &&
				o.Items[0].ProductID == 1 &&
				o.Items[0].Quantity == 3 &&
				o.Items[0].Subtotal.Equal(decimal.RequireFromString("30.00"))
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*Order).ID = 42
		}).Return(nil)

		o, err := svc.PlaceOrder(ctx, []LineInput{{ProductID: 1, Quantity: 3}})
		assert.NoError(t, err)
		assert.Equal(t, uint(42), o.ID)
		assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("30.00")))
		assert.False(t, o.CreatedAt.IsZero())
		repo.AssertExpectations(t)
		products.AssertExpectations(t)
	})

	t.Run("EmptyOrder", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepository)
		svc := NewService(repo, products, nil)

		_, err := svc.PlaceOrder(ctx, nil)
		assert.ErrorIs(t, err, ErrEmptyOrder)
		repo.AssertNotCalled(t, "CreateOrderTx")
	})

	t.Run("UnknownProduct leaves no state", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepository)
		svc := NewService(repo, products, nil)

		products.On("GetByID", ctx, uint(999)).Return(nil, product.ErrProductNotFound)

		_, err := svc.PlaceOrder(ctx, []LineInput{{ProductID: 999, Quantity: 1}})
		assert.ErrorIs(t, err, product.ErrProductNotFound)
		repo.AssertNotCalled(t, "CreateOrderTx")
	})

	t.Run("InvalidQuantity", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepository)
		svc := NewService(repo, products, nil)

		products.On("GetByID", ctx, uint(1)).Return(stockedProduct(1, "Coffee", "10.00", 5), nil)

		_, err := svc.PlaceOrder(ctx, []LineInput{{ProductID: 1, Quantity: 0}})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		repo.AssertNotCalled(t, "CreateOrderTx")
	})

	t.Run("InsufficientStock names the product and mutates nothing", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepository)
		svc := NewService(repo, products, nil)

		products.On("GetByID", ctx, uint(1)).Return(stockedProduct(1, "Coffee", "10.00", 5), nil)

		_, err := svc.PlaceOrder(ctx, []LineInput{{ProductID: 1, Quantity: 10}})
		assert.ErrorIs(t, err, product.ErrInsufficientStock)
		assert.Contains(t, err.Error(), "Coffee")
		repo.AssertNotCalled(t, "CreateOrderTx")
	})

	t.Run("FirstOffendingLine fails whole order", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepository)
		svc := NewService(repo, products, nil)

		products.On("GetByID", ctx, uint(1)).Return(stockedProduct(1, "Coffee", "10.00", 5), nil)
		products.On("GetByID", ctx, uint(2)).Return(stockedProduct(2, "Sandwich", "5.00", 1), nil)

		_, err := svc.PlaceOrder(ctx, []LineInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 3},
		})
		assert.ErrorIs(t, err, product.ErrInsufficientStock)
		assert.Contains(t, err.Error(), "Sandwich")
		repo.AssertNotCalled(t, "CreateOrderTx")
	})

	t.Run("ConcurrentModification retried once then succeeds", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepository)
		stats := &metrics.OrderStats{}
		svc := NewService(repo, products, stats)

		products.On("GetByID", ctx, uint(1)).Return(stockedProduct(1, "Coffee", "10.00", 5), nil)

		repo.On("CreateOrderTx", ctx, mock.Anything).
			Return(ErrConcurrentModification).Once()
		repo.On("CreateOrderTx", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				args.Get(1).(*Order).ID = 43
			}).Return(nil).Once()

		o, err := svc.PlaceOrder(ctx, []LineInput{{ProductID: 1, Quantity: 3}})
		assert.NoError(t, err)
		assert.Equal(t, uint(43), o.ID)
		assert.Equal(t, uint64(1), stats.Retried.Load())
		assert.Equal(t, uint64(1), stats.Placed.Load())
		repo.AssertExpectations(t)
	})

	t.Run("ConcurrentModification surfaces after one retry", func(t *testing.T) {
		repo := new(MockRepository)
		products := new(MockProductRepository)
		stats := &metrics.OrderStats{}
		svc := NewService(repo, products, stats)

		products.On("GetByID", ctx, uint(1)).Return(stockedProduct(1, "Coffee", "10.00", 5), nil)

		repo.On("CreateOrderTx", ctx, mock.Anything).
			Return(ErrConcurrentModification).Twice()

		_, err := svc.PlaceOrder(ctx, []LineInput{{ProductID: 1, Quantity: 3}})
		assert.ErrorIs(t, err, ErrConcurrentModification)
		assert.Equal(t, uint64(1), stats.Rejected.Load())
		repo.AssertExpectations(t)
	})
}

func TestService_GetOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults pagination", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockProductRepository), nil)

		repo.On("FetchOrders", ctx, (*OrderFilterInput)(nil), (*OrderSortInput)(nil), int32(20), int32(0)).
			Return([]*Order{}, nil)

		_, err := svc.GetOrders(ctx, nil, nil, nil, nil)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Caps limit and computes offset", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, new(MockProductRepository), nil)

		limit := int32(500)
		page := int32(3)

		repo.On("FetchOrders", ctx, (*OrderFilterInput)(nil), (*OrderSortInput)(nil), int32(100), int32(200)).
			Return([]*Order{}, nil)

		_, err := svc.GetOrders(ctx, nil, nil, &limit, &page)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestService_GetOrderDetail(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, new(MockProductRepository), nil)

	want := &Order{
		ID:         42,
		TotalPrice: decimal.RequireFromString("30.00"),
		CreatedAt:  time.Now(),
	}
	repo.On("GetOrderDetail", ctx, uint(42)).Return(want, nil)

	got, err := svc.GetOrderDetail(ctx, 42)
	assert.NoError(t, err)
	assert.Equal(t, want, got)

	repo.On("GetOrderDetail", ctx, uint(999)).Return(nil, ErrOrderNotFound)
	_, err = svc.GetOrderDetail(ctx, 999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestService_PlaceOrder_RepoError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	products := new(MockProductRepository)
	svc := NewService(repo, products, nil)

	products.On("GetByID", ctx, uint(1)).Return(stockedProduct(1, "Coffee", "10.00", 5), nil)
	repo.On("CreateOrderTx", ctx, mock.Anything).Return(errors.New("db down"))

	_, err := svc.PlaceOrder(ctx, []LineInput{{ProductID: 1, Quantity: 1}})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrConcurrentModification)
}
