package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/domain"
	"atelier/internal/logger"
	"atelier/internal/repository"
)

func setup(t *testing.T) (*ProductService, *OrderService, *repository.MemoryOrders) {
	t.Helper()
	store := repository.NewMemoryStore()
	ordersRepo := repository.NewMemoryOrders(store)
	tx := repository.NewMemoryTx(store)
	ps := NewProductService(store)
	svc := NewOrderService(ps, ordersRepo, tx, logger.Discard())
	return ps, svc, ordersRepo
}

func customer(items ...RequestedItem) CreateOrderInput {
	return CreateOrderInput{
		Name:       "Amina",
		Email:      "amina@example.com",
		Phone:      "+21620000000",
		Address:    domain.Address{Street: "Rue de Marseille", City: "Tunis", State: "Tunis", Country: "TN", Zipcode: "1000"},
		Items:      items,
		TotalPrice: decimal.NewFromInt(240),
	}
}

func mustProduct(t *testing.T, ps *ProductService, p domain.Product) *domain.Product {
	t.Helper()
	created, err := ps.Create(context.Background(), p)
	require.NoError(t, err)
	return created
}

func TestCreateOrder_ColorFallbacks(t *testing.T) {
	ctx := context.Background()
	ps, svc, _ := setup(t)
	plain := mustProduct(t, ps, domain.Product{ID: "P1", Title: "Jebba", CoverImage: "/img/p1.png"})
	colored := mustProduct(t, ps, domain.Product{
		Title:      "Kaftan",
		CoverImage: "/img/kaftan.png",
		Colors: []domain.Color{
			{ColorName: "Blue", Image: "/img/kaftan-blue.png"},
			{ColorName: "Red", Image: "/img/kaftan-red.png"},
		},
	})

	o, err := svc.CreateOrder(ctx, customer(
		RequestedItem{ProductID: plain.ID, Quantity: 2},
		RequestedItem{ProductID: colored.ID, Quantity: 1},
		RequestedItem{ProductID: colored.ID, Quantity: 1, Color: &domain.Color{ColorName: "Red", Image: "/chosen.png"}},
	))
	require.NoError(t, err)
	require.Len(t, o.LineItems, 3)

	assert.Equal(t, domain.Color{ColorName: "Default", Image: "/img/p1.png"}, o.LineItems[0].Color)
	assert.Equal(t, domain.Color{ColorName: "Blue", Image: "/img/kaftan-blue.png"}, o.LineItems[1].Color)
	assert.Equal(t, domain.Color{ColorName: "Red", Image: "/chosen.png"}, o.LineItems[2].Color)
	assert.NotNil(t, o.ProgressByVariant)
	assert.Empty(t, o.ProgressByVariant)
	assert.Empty(t, o.AssignmentByVariant)
	assert.False(t, o.IsPaid)
	assert.False(t, o.IsDelivered)
}

func TestCreateOrder_ColorFrozenAfterProductChange(t *testing.T) {
	ctx := context.Background()
	ps, svc, _ := setup(t)
	p := mustProduct(t, ps, domain.Product{ID: "P1", Title: "Jebba", CoverImage: "/img/p1.png"})

	o, err := svc.CreateOrder(ctx, customer(RequestedItem{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	p.Colors = []domain.Color{{ColorName: "Green", Image: "/g.png"}}
	_, err = ps.Update(ctx, *p)
	require.NoError(t, err)

	got, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Default", got.LineItems[0].Color.ColorName)
}

func TestCreateOrder_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	ps, svc, orders := setup(t)
	p := mustProduct(t, ps, domain.Product{Title: "Jebba"})

	_, err := svc.CreateOrder(ctx, customer(
		RequestedItem{ProductID: p.ID, Quantity: 1},
		RequestedItem{ProductID: "missing", Quantity: 1},
	))
	require.ErrorIs(t, err, ErrProductNotFound)
	assert.Contains(t, err.Error(), "missing")

	all, err := orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "no order may be persisted")
}

func TestCreateOrder_InvalidInput(t *testing.T) {
	ctx := context.Background()
	ps, svc, _ := setup(t)
	p := mustProduct(t, ps, domain.Product{Title: "Jebba"})

	in := customer(RequestedItem{ProductID: p.ID, Quantity: 1})
	in.Name = ""
	_, err := svc.CreateOrder(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateOrder(ctx, customer(RequestedItem{ProductID: p.ID, Quantity: 0}))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateOrder(ctx, customer())
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = customer(RequestedItem{ProductID: p.ID, Quantity: 1})
	in.Address.Zipcode = ""
	_, err = svc.CreateOrder(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateOrder(ctx, customer(RequestedItem{ProductID: p.ID, Quantity: 1, Color: &domain.Color{ColorName: "a|b"}}))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func newTwoVariantOrder(t *testing.T) (*OrderService, *domain.Order) {
	t.Helper()
	ps, svc, _ := setup(t)
	a := mustProduct(t, ps, domain.Product{ID: "A", Title: "Jebba", Colors: []domain.Color{{ColorName: "Blue", Image: "/b.png"}}})
	b := mustProduct(t, ps, domain.Product{ID: "B", Title: "Kaftan", Colors: []domain.Color{{ColorName: "Red", Image: "/r.png"}}})
	o, err := svc.CreateOrder(context.Background(), customer(
		RequestedItem{ProductID: a.ID, Quantity: 1},
		RequestedItem{ProductID: b.ID, Quantity: 1},
	))
	require.NoError(t, err)
	return svc, o
}

func ptr[T any](v T) *T { return &v }

func TestApplyUpdate_MergesProgress(t *testing.T) {
	ctx := context.Background()
	svc, o := newTwoVariantOrder(t)

	_, err := svc.ApplyUpdate(ctx, o.ID, OrderPatch{Progress: domain.ProgressMap{"B|Red": 30}})
	require.NoError(t, err)

	updated, err := svc.ApplyUpdate(ctx, o.ID, OrderPatch{Progress: domain.ProgressMap{"A|Blue": 50}})
	require.NoError(t, err)
	assert.Equal(t, domain.ProgressMap{"A|Blue": 50, "B|Red": 30}, updated.ProgressByVariant)
}

func TestApplyUpdate_FlagOnlyLeavesRestUntouched(t *testing.T) {
	ctx := context.Background()
	svc, o := newTwoVariantOrder(t)

	_, err := svc.ApplyUpdate(ctx, o.ID, OrderPatch{
		IsDelivered: ptr(true),
		Progress:    domain.ProgressMap{"A|Blue": 40},
		Assignments: domain.AssignmentMap{"A|Blue": "Atelier Medina"},
	})
	require.NoError(t, err)

	updated, err := svc.ApplyUpdate(ctx, o.ID, OrderPatch{IsPaid: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsPaid)
	assert.True(t, updated.IsDelivered)
	assert.Equal(t, domain.ProgressMap{"A|Blue": 40}, updated.ProgressByVariant)
	assert.Equal(t, domain.AssignmentMap{"A|Blue": "Atelier Medina"}, updated.AssignmentByVariant)
}

func TestApplyUpdate_Assignments(t *testing.T) {
	ctx := context.Background()
	svc, o := newTwoVariantOrder(t)

	_, err := svc.ApplyUpdate(ctx, o.ID, OrderPatch{Assignments: domain.AssignmentMap{"A|Blue": "Sonia", "B|Red": "Karim"}})
	require.NoError(t, err)

	updated, err := svc.ApplyUpdate(ctx, o.ID, OrderPatch{Assignments: domain.AssignmentMap{"A|Blue": ""}})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentMap{"B|Red": "Karim"}, updated.AssignmentByVariant)
}

func TestApplyUpdate_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, o := newTwoVariantOrder(t)

	_, err := svc.ApplyUpdate(ctx, "nope", OrderPatch{IsPaid: ptr(true)})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.ApplyUpdate(ctx, o.ID, OrderPatch{Progress: domain.ProgressMap{"A|Blue": 101}})
	assert.ErrorIs(t, err, ErrInvalidProgress)

	_, err = svc.ApplyUpdate(ctx, o.ID, OrderPatch{Progress: domain.ProgressMap{"A|Blue": -1}})
	assert.ErrorIs(t, err, ErrInvalidProgress)

	_, err = svc.ApplyUpdate(ctx, o.ID, OrderPatch{Progress: domain.ProgressMap{"ABlue": 10}})
	assert.ErrorIs(t, err, domain.ErrMalformedKey)

	_, err = svc.ApplyUpdate(ctx, o.ID, OrderPatch{Progress: domain.ProgressMap{"A|Green": 10}})
	assert.ErrorIs(t, err, ErrVariantNotFound)

	_, err = svc.ApplyUpdate(ctx, o.ID, OrderPatch{Assignments: domain.AssignmentMap{"C|Red": "Sonia"}})
	assert.ErrorIs(t, err, ErrVariantNotFound)

	// rejected patches leave nothing behind
	got, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ProgressByVariant)
	assert.Empty(t, got.AssignmentByVariant)
}

func TestApplyUpdate_EmptyPatchIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, o := newTwoVariantOrder(t)

	got, err := svc.ApplyUpdate(ctx, o.ID, OrderPatch{})
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, o.UpdatedAt, got.UpdatedAt)
}

func TestDeleteOrder(t *testing.T) {
	ctx := context.Background()
	svc, o := newTwoVariantOrder(t)

	_, err := svc.DeleteOrder(ctx, "nope")
	require.ErrorIs(t, err, ErrOrderNotFound)

	// unrelated order survived the failed delete
	_, err = svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)

	snap, err := svc.DeleteOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, snap.ID)
	assert.Len(t, snap.LineItems, 2)

	_, err = svc.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = svc.DeleteOrder(ctx, o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListViews_JoinProductData(t *testing.T) {
	ctx := context.Background()
	ps, svc, _ := setup(t)
	withCover := mustProduct(t, ps, domain.Product{ID: "A", Title: "Jebba", CoverImage: "/img/a.png"})
	noCover := mustProduct(t, ps, domain.Product{ID: "B", Title: "Kaftan"})

	_, err := svc.CreateOrder(ctx, customer(
		RequestedItem{ProductID: withCover.ID, Quantity: 1},
		RequestedItem{ProductID: noCover.ID, Quantity: 1},
	))
	require.NoError(t, err)

	mine, err := svc.ListByEmail(ctx, "amina@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Jebba", mine[0].LineItems[0].Title)
	assert.Equal(t, "/img/a.png", mine[0].LineItems[0].CoverImage)
	assert.Equal(t, "", mine[0].LineItems[1].CoverImage)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, DefaultCoverImage, all[0].LineItems[1].CoverImage)

	// product removed from catalog after ordering
	require.NoError(t, ps.Delete(ctx, withCover.ID))
	all, err = svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", all[0].LineItems[0].Title)
	assert.Equal(t, DefaultCoverImage, all[0].LineItems[0].CoverImage)

	none, err := svc.ListByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.ListByEmail(ctx, "")
	assert.ErrorIs(t, err, ErrMissingField)
}
