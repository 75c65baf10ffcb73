package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"atelier/internal/domain"
	"atelier/internal/repository"
)

// ProductLookup источник авторитетных данных о товаре для заказов
type ProductLookup interface {
	Lookup(ctx context.Context, id string) (*domain.Product, error)
}

// ProductService инкапсулирует бизнес-логику вокруг каталога
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

var _ ProductLookup = (*ProductService)(nil)

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(p.Colors))
	for _, c := range p.Colors {
		if c.ColorName == "" || strings.Contains(c.ColorName, domain.VariantKeyDelimiter) {
			return fmt.Errorf("%w: color name %q", ErrInvalidInput, c.ColorName)
		}
		if _, dup := seen[c.ColorName]; dup {
			return fmt.Errorf("%w: duplicate color %q", ErrInvalidInput, c.ColorName)
		}
		seen[c.ColorName] = struct{}{}
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if strings.Contains(p.ID, domain.VariantKeyDelimiter) {
		return nil, fmt.Errorf("%w: product id %q", ErrInvalidInput, p.ID)
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: %s", ErrProductExists, p.ID)
		}
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p, err
}

// Lookup реализует ProductLookup
func (s *ProductService) Lookup(ctx context.Context, id string) (*domain.Product, error) {
	return s.GetByID(ctx, id)
}

// Update заменяет карточку товара. Уже созданные заказы хранят замороженные цвета и не меняются.
func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID == "" {
		return nil, ErrInvalidInput
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, p.ID)
		}
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return err
	}
	return nil
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, f)
}
