package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	UnknownCustomer = "Cliente Desconhecido"
	DefaultUnit     = "unidade"
)

var (
	ErrInvalidStatus = errors.New("invalid order status")
	ErrInvalidItem   = errors.New("invalid order item")
)

func init() {
	// Prices and quantities travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusCompleted, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

type OrderItem struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"medida"`
	Price    decimal.Decimal `json:"price"`
}

// LineTotal is price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(i.Quantity)
}

// Bounds for user-entered and extracted numbers.
const (
	QuantityScale = 3
	PriceScale    = 2

	// maxExponent is checked before any arithmetic; decimal expands
	// 1e30000000 digit by digit and panics once exponents overflow int32.
	maxExponent = 20
)

var (
	MaxQuantity = decimal.NewFromInt(1_000_000)
	MaxPrice    = decimal.NewFromInt(1_000_000_000)
)

func inRange(d, limit decimal.Decimal) bool {
	if exp := d.Exponent(); exp < -maxExponent || exp > maxExponent {
		return false
	}
	return !d.IsNegative() && !d.GreaterThan(limit)
}

// QuantityInRange reports whether q is between 0 and MaxQuantity, ignoring scale.
func QuantityInRange(q decimal.Decimal) bool {
	return inRange(q, MaxQuantity)
}

func ValidQuantity(q decimal.Decimal) bool {
	return inRange(q, MaxQuantity) && q.Equal(q.Round(QuantityScale))
}

func ValidPrice(p decimal.Decimal) bool {
	return inRange(p, MaxPrice) && p.Equal(p.Round(PriceScale))
}

func (i OrderItem) validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidItem)
	}
	if !ValidQuantity(i.Quantity) {
		return fmt.Errorf("%w: quantity for %q must be between 0 and %s with at most %d decimals",
			ErrInvalidItem, i.Name, MaxQuantity, QuantityScale)
	}
	if !ValidPrice(i.Price) {
		return fmt.Errorf("%w: price for %q must be between 0 and %s with at most %d decimals",
			ErrInvalidItem, i.Name, MaxPrice, PriceScale)
	}
	return nil
}

// Order is a processed WhatsApp order. Empty Address or Notes means absent.
type Order struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customerName"`
	Items           []OrderItem     `json:"items"`
	Address         string          `json:"address,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Timestamp       int64           `json:"timestamp"` // epoch ms
	OriginalMessage string          `json:"originalMessage"`
	Status          Status          `json:"status"`
	Saved           bool            `json:"isSaved,omitempty"`
}

func (o Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

func (o *Order) Recalculate() {
	o.Total = o.ComputeTotal()
}

// Clone returns a copy that shares no item storage with o.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	return c
}

// Matches reports whether term occurs, ignoring case, in the customer name,
// id or address. An empty term matches everything.
func (o Order) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(o.CustomerName), term) ||
		strings.Contains(strings.ToLower(o.ID), term) ||
		strings.Contains(strings.ToLower(o.Address), term)
}

// Filter keeps the orders matching term, preserving order.
func Filter(orders []Order, term string) []Order {
	if strings.TrimSpace(term) == "" {
		return orders
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if o.Matches(term) {
			out = append(out, o)
		}
	}
	return out
}

// OrderPatch carries the user-editable fields. Nil means unchanged.
type OrderPatch struct {
	CustomerName *string      `json:"customerName,omitempty"`
	Items        *[]OrderItem `json:"items,omitempty"`
	Address      *string      `json:"address,omitempty"`
	Notes        *string      `json:"notes,omitempty"`
}

func (p OrderPatch) Validate() error {
	if p.Items == nil {
		return nil
	}
	if len(*p.Items) == 0 {
		return fmt.Errorf("%w: order needs at least one item", ErrInvalidItem)
	}
	for _, it := range *p.Items {
		if err := it.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the patch into o and recomputes the total.
func (p OrderPatch) Apply(o *Order) {
	if p.CustomerName != nil {
		name := strings.TrimSpace(*p.CustomerName)
		if name == "" {
			name = UnknownCustomer
		}
		o.CustomerName = name
	}
	if p.Items != nil {
		items := make([]OrderItem, len(*p.Items))
		for i, it := range *p.Items {
			it.Name = strings.TrimSpace(it.Name)
			if strings.TrimSpace(it.Unit) == "" {
				it.Unit = DefaultUnit
			}
			items[i] = it
		}
		o.Items = items
	}
	if p.Address != nil {
		o.Address = strings.TrimSpace(*p.Address)
	}
	if p.Notes != nil {
		o.Notes = strings.TrimSpace(*p.Notes)
	}
	o.Recalculate()
}
