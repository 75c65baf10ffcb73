package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/domain"
	"atelier/internal/logger"
	"atelier/internal/mail"
	"atelier/internal/repository"
)

type fakeSender struct {
	err  error
	sent []mail.Message
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type notifyFixture struct {
	orders *OrderService
	notify *NotificationService
	sender *fakeSender
	order  *domain.Order
}

func setupNotify(t *testing.T) notifyFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	ordersRepo := repository.NewMemoryOrders(store)
	ps := NewProductService(store)
	svc := NewOrderService(ps, ordersRepo, repository.NewMemoryTx(store), logger.Discard())
	sender := &fakeSender{}
	ns := NewNotificationService(ordersRepo, ps, sender, "Wahret Zmen", logger.Discard())

	a := mustProduct(t, ps, domain.Product{ID: "A", Title: "Jebba Tounsia", Colors: []domain.Color{{ColorName: "Blue", Image: "/img/a-blue.png"}}})
	o, err := svc.CreateOrder(context.Background(), customer(RequestedItem{ProductID: a.ID, Quantity: 1}))
	require.NoError(t, err)
	return notifyFixture{orders: svc, notify: ns, sender: sender, order: o}
}

func TestSelectTemplate(t *testing.T) {
	assert.Equal(t, TemplateInProgress, SelectTemplate(0))
	assert.Equal(t, TemplateInProgress, SelectTemplate(99))
	assert.Equal(t, TemplateReady, SelectTemplate(100))
	assert.Equal(t, TemplateReady, SelectTemplate(150))
}

func TestNotify_InProgressTemplate(t *testing.T) {
	f := setupNotify(t)

	msg, err := f.notify.Notify(context.Background(), NotifyRequest{
		OrderID: f.order.ID, Email: "amina@example.com", Key: "A|Blue", Progress: ptr(99),
	})
	require.NoError(t, err)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, *msg, f.sender.sent[0])

	assert.Equal(t, "amina@example.com", msg.To)
	assert.Equal(t, "Wahret Zmen - Product Update (99%)", msg.Subject)
	assert.Contains(t, msg.HTML, "Jebba Tounsia")
	assert.Contains(t, msg.HTML, "Color: Blue")
	assert.Contains(t, msg.HTML, "99% completed")
	assert.Contains(t, msg.HTML, "/img/a-blue.png")
	assert.Contains(t, msg.HTML, "Dear Amina")
}

func TestNotify_ReadyTemplate(t *testing.T) {
	f := setupNotify(t)

	msg, err := f.notify.Notify(context.Background(), NotifyRequest{
		OrderID: f.order.ID, Email: "amina@example.com", Key: "A|Blue", Progress: ptr(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "Wahret Zmen - Product Ready for Pickup!", msg.Subject)
	assert.Contains(t, msg.HTML, "ready for pickup or delivery")
	assert.False(t, strings.Contains(msg.HTML, "%"), "ready template shows no percentage")
}

func TestNotify_DoesNotTouchStoredProgress(t *testing.T) {
	f := setupNotify(t)
	ctx := context.Background()

	_, err := f.orders.ApplyUpdate(ctx, f.order.ID, OrderPatch{Progress: domain.ProgressMap{"A|Blue": 20}})
	require.NoError(t, err)

	_, err = f.notify.Notify(ctx, NotifyRequest{OrderID: f.order.ID, Email: "amina@example.com", Key: "A|Blue", Progress: ptr(80)})
	require.NoError(t, err)

	got, err := f.orders.GetOrder(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.ProgressByVariant["A|Blue"])
}

func TestNotify_Errors(t *testing.T) {
	f := setupNotify(t)
	ctx := context.Background()
	id := f.order.ID

	cases := []struct {
		name string
		req  NotifyRequest
		want error
	}{
		{"missing email", NotifyRequest{OrderID: id, Key: "A|Blue", Progress: ptr(10)}, ErrMissingField},
		{"invalid email", NotifyRequest{OrderID: id, Email: "amina.example.com", Key: "A|Blue", Progress: ptr(10)}, ErrInvalidInput},
		{"missing key", NotifyRequest{OrderID: id, Email: "a@example.com", Progress: ptr(10)}, ErrMissingField},
		{"missing progress", NotifyRequest{OrderID: id, Email: "a@example.com", Key: "A|Blue"}, ErrMissingField},
		{"progress out of range", NotifyRequest{OrderID: id, Email: "a@example.com", Key: "A|Blue", Progress: ptr(101)}, ErrInvalidProgress},
		{"malformed key", NotifyRequest{OrderID: id, Email: "a@example.com", Key: "ABlue", Progress: ptr(10)}, domain.ErrMalformedKey},
		{"unknown order", NotifyRequest{OrderID: "nope", Email: "a@example.com", Key: "A|Blue", Progress: ptr(10)}, ErrOrderNotFound},
		{"wrong color", NotifyRequest{OrderID: id, Email: "a@example.com", Key: "A|Red", Progress: ptr(10)}, ErrVariantNotFound},
		{"wrong product", NotifyRequest{OrderID: id, Email: "a@example.com", Key: "B|Blue", Progress: ptr(10)}, ErrVariantNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.notify.Notify(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.sender.sent)
}

func TestNotify_MissingFieldNamesTheField(t *testing.T) {
	f := setupNotify(t)
	_, err := f.notify.Notify(context.Background(), NotifyRequest{OrderID: f.order.ID, Email: "a@example.com", Key: "A|Blue"})
	require.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "progress")
}

func TestNotify_DeliveryFailed(t *testing.T) {
	f := setupNotify(t)
	smtpErr := errors.New("535 authentication failed")
	f.sender.err = smtpErr

	_, err := f.notify.Notify(context.Background(), NotifyRequest{
		OrderID: f.order.ID, Email: "amina@example.com", Key: "A|Blue", Progress: ptr(0),
	})
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.ErrorIs(t, err, smtpErr)
}

func TestNotify_ProductGoneUsesID(t *testing.T) {
	store := repository.NewMemoryStore()
	ordersRepo := repository.NewMemoryOrders(store)
	ps := NewProductService(store)
	sender := &fakeSender{}
	ns := NewNotificationService(ordersRepo, ps, sender, "Wahret Zmen", logger.Discard())

	o := domain.Order{Name: "Amina", LineItems: []domain.LineItem{{ProductID: "gone", Quantity: 1, Color: domain.Color{ColorName: "Default", Image: "/x.png"}}}}
	require.NoError(t, ordersRepo.Create(context.Background(), &o))

	msg, err := ns.Notify(context.Background(), NotifyRequest{OrderID: o.ID, Email: "a@example.com", Key: "gone|Default", Progress: ptr(50)})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "<strong>gone</strong>")
}

func TestNotify_RejectedAddressIsClientError(t *testing.T) {
	f := setupNotify(t)
	f.sender.err = fmt.Errorf("%w %q: bad", mail.ErrInvalidAddress, "x")

	_, err := f.notify.Notify(context.Background(), NotifyRequest{
		OrderID: f.order.ID, Email: "amina@example.com", Key: "A|Blue", Progress: ptr(10),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrDeliveryFailed)
}

type lookupFunc func(ctx context.Context, id string) (*domain.Product, error)

func (f lookupFunc) Lookup(ctx context.Context, id string) (*domain.Product, error) { return f(ctx, id) }

func TestNotify_LookupFailureIsReturned(t *testing.T) {
	store := repository.NewMemoryStore()
	ordersRepo := repository.NewMemoryOrders(store)
	sender := &fakeSender{}
	storeDown := lookupFunc(func(context.Context, string) (*domain.Product, error) {
		return nil, context.DeadlineExceeded
	})
	ns := NewNotificationService(ordersRepo, storeDown, sender, "Wahret Zmen", logger.Discard())

	o := domain.Order{Name: "Amina", LineItems: []domain.LineItem{{ProductID: "A", Quantity: 1, Color: domain.Color{ColorName: "Blue"}}}}
	require.NoError(t, ordersRepo.Create(context.Background(), &o))

	_, err := ns.Notify(context.Background(), NotifyRequest{OrderID: o.ID, Email: "a@example.com", Key: "A|Blue", Progress: ptr(50)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrDeliveryFailed)
	assert.Empty(t, sender.sent)
}
