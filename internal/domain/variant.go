package domain

import (
	"errors"
	"fmt"
	"strings"
)

// VariantKeyDelimiter разделяет товар и цвет внутри VariantKey
const VariantKeyDelimiter = "|"

var (
	ErrMalformedKey        = errors.New("malformed variant key")
	ErrInvalidKeyComponent = errors.New("invalid variant key component")
)

// VariantKey адресует пару (товар, цвет) внутри заказа: "{productId}|{colorName}"
type VariantKey string

// EncodeVariantKey собирает ключ; компоненты не могут быть пустыми или содержать разделитель
func EncodeVariantKey(productID, colorName string) (VariantKey, error) {
	if productID == "" {
		return "", fmt.Errorf("%w: empty product id", ErrInvalidKeyComponent)
	}
	if colorName == "" {
		return "", fmt.Errorf("%w: empty color name", ErrInvalidKeyComponent)
	}
	if strings.Contains(productID, VariantKeyDelimiter) {
		return "", fmt.Errorf("%w: product id %q contains %q", ErrInvalidKeyComponent, productID, VariantKeyDelimiter)
	}
	if strings.Contains(colorName, VariantKeyDelimiter) {
		return "", fmt.Errorf("%w: color name %q contains %q", ErrInvalidKeyComponent, colorName, VariantKeyDelimiter)
	}
	return VariantKey(productID + VariantKeyDelimiter + colorName), nil
}

// ParseVariantKey проверяет ключ, пришедший от клиента
func ParseVariantKey(s string) (VariantKey, error) {
	k := VariantKey(s)
	if _, _, err := k.Decode(); err != nil {
		return "", err
	}
	return k, nil
}

// Decode делит ключ по первому разделителю
func (k VariantKey) Decode() (productID, colorName string, err error) {
	productID, colorName, ok := strings.Cut(string(k), VariantKeyDelimiter)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedKey, string(k))
	}
	if productID == "" || colorName == "" {
		return "", "", fmt.Errorf("%w: %q has an empty component", ErrMalformedKey, string(k))
	}
	return productID, colorName, nil
}

func (k VariantKey) String() string { return string(k) }

// ProgressMap разреженная карта VariantKey -> процент готовности
type ProgressMap map[VariantKey]int

// Merge накладывает фрагмент поверх карты; ключи вне фрагмента не трогаются
func (m ProgressMap) Merge(fragment ProgressMap) ProgressMap {
	out := m.Clone()
	if out == nil {
		out = make(ProgressMap, len(fragment))
	}
	for k, v := range fragment {
		out[k] = v
	}
	return out
}

func (m ProgressMap) Clone() ProgressMap {
	if m == nil {
		return nil
	}
	cp := make(ProgressMap, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// AssignmentMap разреженная карта VariantKey -> исполнитель (портной, мастерская)
type AssignmentMap map[VariantKey]string

// Merge накладывает фрагмент; пустое имя исполнителя снимает назначение
func (m AssignmentMap) Merge(fragment AssignmentMap) AssignmentMap {
	out := m.Clone()
	if out == nil {
		out = make(AssignmentMap, len(fragment))
	}
	for k, v := range fragment {
		if strings.TrimSpace(v) == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

func (m AssignmentMap) Clone() AssignmentMap {
	if m == nil {
		return nil
	}
	cp := make(AssignmentMap, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
