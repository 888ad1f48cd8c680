package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"pedidos/internal/model"
)

var ErrMalformed = errors.New("malformed extraction")

// MalformedError keeps the raw model output for logging. Its message never
// includes the raw text.
type MalformedError struct {
	Raw    string
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed extraction: " + e.Reason
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// Item is one extracted line. Price is not part of extraction.
type Item struct {
	Name     string
	Quantity decimal.Decimal
	Unit     string
}

// Result is the normalized model output. Empty Address/Notes mean absent.
type Result struct {
	CustomerName string
	Items        []Item
	Address      string
	Notes        string
}

// Parse decodes raw model output into a Result, applying field defaults.
func Parse(raw string) (Result, error) {
	body := stripFence(strings.TrimSpace(raw))

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return Result{}, &MalformedError{Raw: raw, Reason: fmt.Sprintf("decode json: %v", err)}
	}
	if doc == nil {
		return Result{}, &MalformedError{Raw: raw, Reason: "expected a json object"}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Result{}, &MalformedError{Raw: raw, Reason: "trailing data after json object"}
	}

	rawItems, ok := doc["items"].([]any)
	if !ok {
		return Result{}, &MalformedError{Raw: raw, Reason: "items must be an array"}
	}
	if len(rawItems) == 0 {
		return Result{}, &MalformedError{Raw: raw, Reason: "items is empty"}
	}

	items := make([]Item, 0, len(rawItems))
	for i, ri := range rawItems {
		obj, ok := ri.(map[string]any)
		if !ok {
			return Result{}, &MalformedError{Raw: raw, Reason: fmt.Sprintf("items[%d] is not an object", i)}
		}
		name := optionalString(obj["name"])
		if name == "" {
			return Result{}, &MalformedError{Raw: raw, Reason: fmt.Sprintf("items[%d] has no name", i)}
		}
		unit := optionalString(obj["medida"])
		if unit == "" {
			unit = model.DefaultUnit
		}
		items = append(items, Item{
			Name:     name,
			Quantity: quantity(obj["quantity"]),
			Unit:     unit,
		})
	}

	customer := optionalString(doc["customerName"])
	if customer == "" {
		customer = model.UnknownCustomer
	}

	return Result{
		CustomerName: customer,
		Items:        items,
		Address:      optionalString(doc["address"]),
		Notes:        optionalString(doc["notes"]),
	}, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(s, "```")), "```")
	// drop a language tag, on its own line or glued to the body
	if i := strings.IndexAny(s, "{[\n"); i > 0 {
		s = s[i:]
	}
	return strings.TrimSpace(s)
}

// optionalString returns "" for missing, null, non-string, blank or "null".
func optionalString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

var one = decimal.NewFromInt(1)

func quantity(v any) decimal.Decimal {
	var (
		q   decimal.Decimal
		err error
	)
	switch t := v.(type) {
	case json.Number:
		q, err = decimal.NewFromString(t.String())
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		q, err = decimal.NewFromString(s)
	default:
		return one
	}
	if err != nil || !model.QuantityInRange(q) {
		return one
	}
	return q.Round(model.QuantityScale)
}
