package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"atelier/internal/domain"
	"atelier/internal/repository"
)

// DefaultCoverImage подставляется в админском списке, когда у товара нет обложки
const DefaultCoverImage = "/assets/default-image.png"

// resolveConcurrency caps parallel product lookups per order.
const resolveConcurrency = 8

// OrderService реализует логику заказов: создание, частичное обновление, удаление, чтение
type OrderService struct {
	products ProductLookup
	orders   repository.OrderRepository
	tx       repository.TxManager
	logger   *slog.Logger
}

func NewOrderService(products ProductLookup, orders repository.OrderRepository, tx repository.TxManager, logger *slog.Logger) *OrderService {
	return &OrderService{products: products, orders: orders, tx: tx, logger: logger}
}

// RequestedItem позиция, как её прислал клиент; цвет необязателен
type RequestedItem struct {
	ProductID string        `json:"productId"`
	Quantity  int64         `json:"quantity"`
	Color     *domain.Color `json:"color,omitempty"`
}

// CreateOrderInput данные покупателя и запрошенные позиции
type CreateOrderInput struct {
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	Address    domain.Address  `json:"address"`
	Items      []RequestedItem `json:"products"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func (in CreateOrderInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case strings.TrimSpace(in.Email) == "":
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	case strings.TrimSpace(in.Phone) == "":
		return fmt.Errorf("%w: phone is required", ErrInvalidInput)
	case !in.Address.Complete():
		return fmt.Errorf("%w: address is incomplete", ErrInvalidInput)
	case len(in.Items) == 0:
		return fmt.Errorf("%w: at least one product is required", ErrInvalidInput)
	case in.TotalPrice.IsNegative():
		return fmt.Errorf("%w: total price must not be negative", ErrInvalidInput)
	}
	for i, it := range in.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return fmt.Errorf("%w: products[%d] needs a product id and a positive quantity", ErrInvalidInput, i)
		}
		if it.Color != nil && strings.Contains(it.Color.ColorName, domain.VariantKeyDelimiter) {
			return fmt.Errorf("%w: products[%d] color name contains %q", ErrInvalidInput, i, domain.VariantKeyDelimiter)
		}
	}
	return nil
}

// CreateOrder разрешает товары и цвета и сохраняет заказ целиком либо ничего
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	items, err := s.resolveItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	o := domain.Order{
		Name:                in.Name,
		Email:               in.Email,
		Phone:               in.Phone,
		Address:             in.Address,
		LineItems:           items,
		TotalPrice:          in.TotalPrice,
		ProgressByVariant:   domain.ProgressMap{},
		AssignmentByVariant: domain.AssignmentMap{},
	}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.orders.Create(ctx, &o)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "order created", "order_id", o.ID, "items", len(o.LineItems))
	return &o, nil
}

// resolveItems looks every product up concurrently; the first failure cancels the rest.
func (s *OrderService) resolveItems(ctx context.Context, requested []RequestedItem) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, len(requested))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, it := range requested {
		g.Go(func() error {
			p, err := s.products.Lookup(gctx, it.ProductID)
			if err != nil {
				return err
			}
			items[i] = domain.LineItem{
				ProductID: p.ID,
				Quantity:  it.Quantity,
				Color:     p.ResolveColor(it.Color),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// OrderPatch частичное обновление; nil-поля не трогаются
type OrderPatch struct {
	IsPaid      *bool                `json:"isPaid,omitempty"`
	IsDelivered *bool                `json:"isDelivered,omitempty"`
	Progress    domain.ProgressMap   `json:"productProgress,omitempty"`
	Assignments domain.AssignmentMap `json:"tailorAssignments,omitempty"`
}

func (p OrderPatch) empty() bool {
	return p.IsPaid == nil && p.IsDelivered == nil && len(p.Progress) == 0 && len(p.Assignments) == 0
}

func (p OrderPatch) validate() error {
	for k, v := range p.Progress {
		if _, _, err := k.Decode(); err != nil {
			return err
		}
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: %s=%d", ErrInvalidProgress, k, v)
		}
	}
	for k := range p.Assignments {
		if _, _, err := k.Decode(); err != nil {
			return err
		}
	}
	return nil
}

// ApplyUpdate накладывает patch на сохранённый заказ. Карты прогресса и
// назначений сливаются: ключи, которых нет во фрагменте, сохраняются.
func (s *OrderService) ApplyUpdate(ctx context.Context, id string, patch OrderPatch) (*domain.Order, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	if err := patch.validate(); err != nil {
		return nil, err
	}

	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.getOrder(ctx, id)
		if err != nil {
			return err
		}
		if patch.empty() {
			updated = o
			return nil
		}
		for k := range patch.Progress {
			if !o.HasVariant(k) {
				return fmt.Errorf("%w: %s", ErrVariantNotFound, k)
			}
		}
		for k := range patch.Assignments {
			if !o.HasVariant(k) {
				return fmt.Errorf("%w: %s", ErrVariantNotFound, k)
			}
		}

		if patch.IsPaid != nil {
			o.IsPaid = *patch.IsPaid
		}
		if patch.IsDelivered != nil {
			o.IsDelivered = *patch.IsDelivered
		}
		if len(patch.Progress) > 0 {
			o.ProgressByVariant = o.ProgressByVariant.Merge(patch.Progress)
		}
		if len(patch.Assignments) > 0 {
			o.AssignmentByVariant = o.AssignmentByVariant.Merge(patch.Assignments)
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "order updated", "order_id", id,
		"progress_keys", len(patch.Progress), "assignment_keys", len(patch.Assignments))
	return updated, nil
}

// DeleteOrder удаляет заказ безвозвратно и возвращает его последний снимок
func (s *OrderService) DeleteOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	var deleted *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.getOrder(ctx, id)
		if err != nil {
			return err
		}
		if err := s.orders.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
			}
			return err
		}
		deleted = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "order deleted", "order_id", id)
	return deleted, nil
}

// OwnerEmail возвращает email покупателя, оформившего заказ
func (s *OrderService) OwnerEmail(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrInvalidInput
	}
	o, err := s.getOrder(ctx, id)
	if err != nil {
		return "", err
	}
	return o.Email, nil
}

func (s *OrderService) getOrder(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return o, err
}

// LineItemView позиция с данными товара для отображения
type LineItemView struct {
	domain.LineItem
	Title      string         `json:"title"`
	CoverImage string         `json:"coverImage"`
	Colors     []domain.Color `json:"colors,omitempty"`
}

// OrderView заказ с подставленными названиями и обложками товаров
type OrderView struct {
	domain.Order
	LineItems []LineItemView `json:"products"`
}

// GetOrder возвращает заказ по id
func (s *OrderService) GetOrder(ctx context.Context, id string) (*OrderView, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	o, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.join(ctx, []domain.Order{*o}, "")
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListByEmail заказы покупателя от новых к старым; пустой результат не ошибка
func (s *OrderService) ListByEmail(ctx context.Context, email string) ([]OrderView, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email", ErrMissingField)
	}
	orders, err := s.orders.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, orders, "")
}

// ListAll все заказы для персонала, с обложкой по умолчанию
func (s *OrderService) ListAll(ctx context.Context) ([]OrderView, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, orders, DefaultCoverImage)
}

// join attaches product title/colors/cover to each line item. Products that
// no longer exist leave the display fields empty (cover falls back to fallbackCover).
func (s *OrderService) join(ctx context.Context, orders []domain.Order, fallbackCover string) ([]OrderView, error) {
	cache := make(map[string]*domain.Product)
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		v := OrderView{Order: o, LineItems: make([]LineItemView, 0, len(o.LineItems))}
		for _, li := range o.LineItems {
			p, seen := cache[li.ProductID]
			if !seen {
				var err error
				p, err = s.products.Lookup(ctx, li.ProductID)
				if err != nil && !errors.Is(err, ErrProductNotFound) {
					return nil, err
				}
				cache[li.ProductID] = p
			}
			item := LineItemView{LineItem: li, CoverImage: fallbackCover}
			if p != nil {
				item.Title = p.Title
				item.Colors = p.Colors
				if p.CoverImage != "" {
					item.CoverImage = p.CoverImage
				}
			}
			v.LineItems = append(v.LineItems, item)
		}
		views = append(views, v)
	}
	return views, nil
}
