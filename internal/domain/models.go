package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultColorName имя синтетического цвета, если у товара нет объявленных цветов
const DefaultColorName = "Default"

// Color вариант цвета товара
type Color struct {
	ColorName string `json:"colorName"`
	Image     string `json:"image"`
}

// Product представляет товар бутика
type Product struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	CoverImage string          `json:"coverImage"`
	Colors     []Color         `json:"colors"`
	Price      decimal.Decimal `json:"price"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// ResolveColor выбирает цвет позиции: запрошенный, первый объявленный или Default
func (p Product) ResolveColor(requested *Color) Color {
	if requested != nil && requested.ColorName != "" {
		c := *requested
		if c.Image == "" {
			c.Image = p.imageFor(c.ColorName)
		}
		return c
	}
	if len(p.Colors) > 0 {
		return p.Colors[0]
	}
	return Color{ColorName: DefaultColorName, Image: p.CoverImage}
}

func (p Product) imageFor(colorName string) string {
	for _, c := range p.Colors {
		if c.ColorName == colorName && c.Image != "" {
			return c.Image
		}
	}
	return p.CoverImage
}

// Address адрес доставки
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Zipcode string `json:"zipcode"`
}

// Complete сообщает, заполнены ли все поля адреса
func (a Address) Complete() bool {
	return a.Street != "" && a.City != "" && a.State != "" && a.Country != "" && a.Zipcode != ""
}

// LineItem позиция в заказе; цвет фиксируется при создании заказа
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
	Color     Color  `json:"color"`
}

// VariantKey ключ варианта позиции
func (li LineItem) VariantKey() (VariantKey, error) {
	return EncodeVariantKey(li.ProductID, li.Color.ColorName)
}

// Order сущность заказа
type Order struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Email               string          `json:"email"`
	Phone               string          `json:"phone"`
	Address             Address         `json:"address"`
	LineItems           []LineItem      `json:"products"`
	TotalPrice          decimal.Decimal `json:"totalPrice"`
	IsPaid              bool            `json:"isPaid"`
	IsDelivered         bool            `json:"isDelivered"`
	ProgressByVariant   ProgressMap     `json:"productProgress"`
	AssignmentByVariant AssignmentMap   `json:"tailorAssignments"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// FindLineItem возвращает первую позицию, совпадающую по товару и имени цвета
func (o *Order) FindLineItem(productID, colorName string) (*LineItem, bool) {
	for i := range o.LineItems {
		li := &o.LineItems[i]
		if li.ProductID == productID && li.Color.ColorName == colorName {
			return li, true
		}
	}
	return nil, false
}

// HasVariant проверяет, что ключ адресует позицию этого заказа
func (o *Order) HasVariant(key VariantKey) bool {
	productID, colorName, err := key.Decode()
	if err != nil {
		return false
	}
	_, ok := o.FindLineItem(productID, colorName)
	return ok
}

// Clone глубокая копия заказа
func (o Order) Clone() Order {
	cp := o
	cp.LineItems = append([]LineItem(nil), o.LineItems...)
	cp.ProgressByVariant = o.ProgressByVariant.Clone()
	cp.AssignmentByVariant = o.AssignmentByVariant.Clone()
	return cp
}
