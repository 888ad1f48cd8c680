package printer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"pedidos/internal/model"
)

const (
	// DefaultWidth fits an 80mm thermal roll.
	DefaultWidth  = 48
	DefaultFooter = "Obrigado pela preferência!"

	pixelsPerChar = 8
	dateLayout    = "02/01/2006, 15:04:05"
)

// cols measures display columns independently of the host locale.
var cols = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

type Options struct {
	Width        int
	ShowHeader   bool
	ShowFooter   bool
	CustomHeader string
	CustomFooter string
	Location     *time.Location
}

func DefaultOptions() Options {
	return Options{
		Width:        DefaultWidth,
		ShowHeader:   true,
		ShowFooter:   true,
		CustomFooter: DefaultFooter,
		Location:     time.UTC,
	}
}

func (o Options) normalized() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.CustomFooter == "" {
		o.CustomFooter = DefaultFooter
	}
	return o
}

func (o Options) header(order model.Order) string {
	if o.CustomHeader != "" {
		return o.CustomHeader
	}
	return "PEDIDO - " + order.CustomerName
}

// itemLabel renders "{quantity}{unit} {name}".
func itemLabel(it model.OrderItem) string {
	return fmt.Sprintf("%s%s %s", it.Quantity.String(), it.Unit, it.Name)
}

func money(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}

// CenterText left-pads text so it sits centered in width columns.
func CenterText(text string, width int) string {
	w := cols.StringWidth(text)
	if w >= width {
		return text
	}
	return strings.Repeat(" ", (width-w)/2) + text
}

func divider(width int) string {
	return strings.Repeat("-", width)
}

// justify places left and right on one line of width columns, truncating
// left when they do not fit.
func justify(left, right string, width int) string {
	rw := cols.StringWidth(right)
	avail := width - rw - 1
	if avail < 1 {
		return left + " " + right
	}
	left = cols.Truncate(left, avail, "...")
	gap := width - cols.StringWidth(left) - rw
	return left + strings.Repeat(" ", gap) + right
}

// FormatText renders order as monospace text for a thermal printer.
func FormatText(order model.Order, opts Options) string {
	opts = opts.normalized()
	w := opts.Width

	var b strings.Builder
	line := func(s string) {
		b.WriteString(strings.TrimRight(s, " "))
		b.WriteByte('\n')
	}

	date := time.UnixMilli(order.Timestamp).In(opts.Location).Format(dateLayout)
	line(strings.Repeat(" ", max(0, w-cols.StringWidth(date))) + date)

	if opts.ShowHeader {
		line(CenterText(opts.header(order), w))
		line(divider(w))
	}

	for _, it := range order.Items {
		line(justify(itemLabel(it), money(it.LineTotal()), w))
	}
	line(divider(w))
	line(justify("TOTAL", money(order.ComputeTotal()), w))

	if order.Address != "" {
		line(divider(w))
		line("Endereço de entrega:")
		for _, l := range strings.Split(cols.Wrap(order.Address, w), "\n") {
			line(l)
		}
	}
	if order.Notes != "" {
		line(divider(w))
		line("Observações:")
		for _, l := range strings.Split(cols.Wrap(order.Notes, w), "\n") {
			line(l)
		}
	}

	if opts.ShowFooter {
		line("")
		line(CenterText(opts.CustomFooter, w))
	}
	return b.String()
}

var receipt = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Pedido - {{.Customer}}</title>
  <style>
    body { font-family: monospace; font-size: 12px; line-height: 1.2; width: {{.BodyWidth}}px; margin: 0 auto; padding: 5px; }
    .header { text-align: center; margin-bottom: 10px; }
    .divider { border-top: 1px dashed #000; margin: 5px 0; }
    .item { display: flex; justify-content: space-between; margin-bottom: 5px; }
    .item-name { flex: 1; }
    .item-price { text-align: right; min-width: 70px; }
    .total { font-weight: bold; margin-top: 10px; display: flex; justify-content: space-between; }
    .address, .notes { margin-top: 10px; }
    .footer { text-align: center; margin-top: 10px; font-size: 10px; }
    .date { text-align: right; font-size: 10px; margin-bottom: 10px; }
  </style>
</head>
<body>
  <div class="date">{{.Date}}</div>
{{- if .ShowHeader}}
  <div class="header"><h1>{{.Header}}</h1></div>
  <div class="divider"></div>
{{- end}}
  <div class="items">
{{- range .Items}}
    <div class="item">
      <div class="item-name">{{.Label}}</div>
      <div class="item-price">{{.Amount}}</div>
    </div>
{{- end}}
  </div>
  <div class="divider"></div>
  <div class="total">
    <div>TOTAL</div>
    <div>{{.Total}}</div>
  </div>
{{- if .Address}}
  <div class="address">
    <div class="divider"></div>
    <strong>Endereço de entrega:</strong><br>
    {{.Address}}
  </div>
{{- end}}
{{- if .Notes}}
  <div class="notes">
    <div class="divider"></div>
    <strong>Observações:</strong><br>
    {{.Notes}}
  </div>
{{- end}}
{{- if .ShowFooter}}
  <div class="footer">{{.Footer}}</div>
{{- end}}
</body>
</html>
`))

type receiptLine struct {
	Label  string
	Amount string
}

type receiptData struct {
	Customer   string
	BodyWidth  int
	Date       string
	ShowHeader bool
	Header     string
	Items      []receiptLine
	Total      string
	Address    string
	Notes      string
	ShowFooter bool
	Footer     string
}

// FormatHTML renders order as a printable HTML page sized for the printer width.
func FormatHTML(order model.Order, opts Options) (string, error) {
	opts = opts.normalized()

	data := receiptData{
		Customer:   order.CustomerName,
		BodyWidth:  opts.Width * pixelsPerChar,
		Date:       time.UnixMilli(order.Timestamp).In(opts.Location).Format(dateLayout),
		ShowHeader: opts.ShowHeader,
		Header:     opts.header(order),
		Items:      make([]receiptLine, 0, len(order.Items)),
		Total:      money(order.ComputeTotal()),
		Address:    order.Address,
		Notes:      order.Notes,
		ShowFooter: opts.ShowFooter,
		Footer:     opts.CustomFooter,
	}
	for _, it := range order.Items {
		data.Items = append(data.Items, receiptLine{Label: itemLabel(it), Amount: money(it.LineTotal())})
	}

	var buf bytes.Buffer
	if err := receipt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.String(), nil
}
