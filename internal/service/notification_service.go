package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"atelier/internal/domain"
	"atelier/internal/mail"
	"atelier/internal/repository"
)

// NotifyRequest запрос персонала на уведомление покупателя о варианте.
// Progress — указатель, чтобы отличить отсутствие значения от нуля.
type NotifyRequest struct {
	OrderID  string `json:"orderId"`
	Email    string `json:"email"`
	Key      string `json:"productKey"`
	Progress *int   `json:"progress"`
}

// Template виды писем
type Template string

const (
	TemplateInProgress Template = "in_progress"
	TemplateReady      Template = "ready"
)

// SelectTemplate: ниже 100% — письмо о ходе работ, от 100% — о готовности
func SelectTemplate(progress int) Template {
	if progress < 100 {
		return TemplateInProgress
	}
	return TemplateReady
}

// NotificationService находит вариант в заказе и отправляет письмо.
// Сохранённый прогресс не меняет: запись прогресса и уведомление — независимые вызовы
// без общего порядка и транзакции.
type NotificationService struct {
	orders   repository.OrderRepository
	products ProductLookup
	sender   mail.Sender
	brand    string
	logger   *slog.Logger
}

func NewNotificationService(orders repository.OrderRepository, products ProductLookup, sender mail.Sender, brand string, logger *slog.Logger) *NotificationService {
	return &NotificationService{orders: orders, products: products, sender: sender, brand: brand, logger: logger}
}

func (r NotifyRequest) validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("%w: email", ErrMissingField)
	}
	if err := mail.ValidateAddress(r.Email); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if strings.TrimSpace(r.Key) == "" {
		return fmt.Errorf("%w: productKey", ErrMissingField)
	}
	if r.Progress == nil {
		return fmt.Errorf("%w: progress", ErrMissingField)
	}
	if *r.Progress < 0 || *r.Progress > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidProgress, *r.Progress)
	}
	return nil
}

// Notify отправляет письмо о прогрессе варианта. Ошибка транспорта
// возвращается как ErrDeliveryFailed, повторов нет.
func (s *NotificationService) Notify(ctx context.Context, req NotifyRequest) (*mail.Message, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	key, err := domain.ParseVariantKey(req.Key)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, req.OrderID)
		}
		return nil, err
	}

	productID, colorName, _ := key.Decode()
	li, ok := o.FindLineItem(productID, colorName)
	if !ok {
		return nil, fmt.Errorf("%w: %s in order %s", ErrVariantNotFound, key, o.ID)
	}

	// a product removed from the catalog is named by its id
	title := li.ProductID
	p, err := s.products.Lookup(ctx, li.ProductID)
	switch {
	case err == nil:
		if p.Title != "" {
			title = p.Title
		}
	case !errors.Is(err, ErrProductNotFound):
		return nil, fmt.Errorf("lookup product %s: %w", li.ProductID, err)
	}

	msg, err := s.render(o.Name, title, *li, *req.Progress)
	if err != nil {
		return nil, err
	}
	msg.To = req.Email

	if err := s.sender.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrInvalidAddress) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		s.logger.ErrorContext(ctx, "notification failed", "order_id", o.ID, "variant", key.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	s.logger.InfoContext(ctx, "notification sent", "order_id", o.ID, "variant", key.String(), "progress", *req.Progress)
	return &msg, nil
}

type templateData struct {
	Brand        string
	CustomerName string
	Title        string
	ColorName    string
	Image        string
	Progress     int
}

var (
	inProgressTmpl = template.Must(template.New("in_progress").Parse(`<p>Dear {{.CustomerName}},</p>
<p>Your ordered product <strong>{{.Title}}</strong> (Color: {{.ColorName}}) is now <strong>{{.Progress}}% completed</strong>.</p>
<img src="{{.Image}}" width="60" />
<p>We'll notify you again once it's fully ready!</p>
<p>Best regards,<br/>{{.Brand}} Boutique</p>
`))

	readyTmpl = template.Must(template.New("ready").Parse(`<p>Dear {{.CustomerName}},</p>
<p>Your product <strong>{{.Title}}</strong> (Color: {{.ColorName}}) is now <strong>fully completed</strong> and ready for pickup or delivery.</p>
<img src="{{.Image}}" width="60" />
<p>Thank you for your trust in {{.Brand}} Boutique!</p>
<p>Warm regards,<br/>{{.Brand}} Team</p>
`))
)

func (s *NotificationService) render(customer, title string, li domain.LineItem, progress int) (mail.Message, error) {
	data := templateData{
		Brand:        s.brand,
		CustomerName: customer,
		Title:        title,
		ColorName:    li.Color.ColorName,
		Image:        li.Color.Image,
		Progress:     progress,
	}

	var (
		subject string
		tmpl    *template.Template
	)
	switch SelectTemplate(progress) {
	case TemplateInProgress:
		subject = fmt.Sprintf("%s - Product Update (%d%%)", s.brand, progress)
		tmpl = inProgressTmpl
	default:
		subject = fmt.Sprintf("%s - Product Ready for Pickup!", s.brand)
		tmpl = readyTmpl
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return mail.Message{}, fmt.Errorf("render %s template: %w", tmpl.Name(), err)
	}
	return mail.Message{Subject: subject, HTML: buf.String()}, nil
}
