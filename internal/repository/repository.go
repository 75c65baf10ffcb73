package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"atelier/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ErrConflict возвращается при создании сущности с уже занятым id
var ErrConflict = errors.New("already exists")

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	TitleSubstring string
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
}

func (f ProductFilter) match(p domain.Product) bool {
	if !containsIgnoreCase(p.Title, f.TitleSubstring) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
}

// OrderRepository интерфейс репозитория заказов.
// ListByEmail и List отдают заказы от новых к старым.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	Delete(ctx context.Context, id string) error
	ListByEmail(ctx context.Context, email string) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
}

// TxManager абстракция транзакции
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
