package printer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pedidos/internal/model"
)

func sampleOrder() model.Order {
	o := model.Order{
		ID:           "7b0c4a6e-5d7f-4a55-9d3e-0f3c2f1f9a10",
		CustomerName: "Maria",
		Items: []model.OrderItem{
			{Name: "Pão", Quantity: decimal.NewFromInt(2), Unit: "unidade", Price: decimal.RequireFromString("0.75")},
			{Name: "Queijo", Quantity: decimal.RequireFromString("0.5"), Unit: "kg", Price: decimal.RequireFromString("42.90")},
		},
		Timestamp: time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC).UnixMilli(),
		Status:    model.StatusPending,
	}
	o.Recalculate()
	return o
}

func TestFormatText_Layout(t *testing.T) {
	out := FormatText(sampleOrder(), DefaultOptions())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Equal(t, "                            09/03/2024, 14:30:00", lines[0])
	assert.Equal(t, "                 PEDIDO - Maria", lines[1])
	assert.Equal(t, strings.Repeat("-", 48), lines[2])
	assert.Equal(t, "2unidade Pão                             R$ 1.50", lines[3])
	assert.Equal(t, "0.5kg Queijo                            R$ 21.45", lines[4])
	assert.Equal(t, "TOTAL                                   R$ 22.95", lines[6])
	assert.Equal(t, "           Obrigado pela preferência!", lines[len(lines)-1])
}

func TestFormatText_OmitsAbsentBlocks(t *testing.T) {
	out := FormatText(sampleOrder(), DefaultOptions())

	assert.NotContains(t, out, "Endereço de entrega")
	assert.NotContains(t, out, "Observações")
	assert.Contains(t, out, "Pão")
	assert.Contains(t, out, "Queijo")
	assert.Contains(t, out, "TOTAL")
}

func TestFormatText_AddressNotesAndOptions(t *testing.T) {
	o := sampleOrder()
	o.Address = "Rua das Flores, 12"
	o.Notes = "Entregar depois das 18h"

	out := FormatText(o, Options{Width: 32, CustomHeader: "PADARIA"})

	assert.Contains(t, out, "Endereço de entrega:\nRua das Flores, 12\n")
	assert.Contains(t, out, "Observações:\nEntregar depois das 18h\n")
	assert.NotContains(t, out, "PADARIA", "header disabled")
	assert.NotContains(t, out, DefaultFooter, "footer disabled")
	for _, l := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		assert.LessOrEqual(t, len([]rune(l)), 32, l)
	}
}

func TestFormatText_TruncatesLongNames(t *testing.T) {
	o := sampleOrder()
	o.Items[0].Name = strings.Repeat("Pão de queijo mineiro ", 4)

	out := FormatText(o, DefaultOptions())

	line := strings.Split(out, "\n")[3]
	assert.True(t, strings.HasSuffix(line, "R$ 1.50"), line)
	assert.Contains(t, line, "...")
	assert.Equal(t, 48, len([]rune(line)))
}

func TestFormatText_DoesNotMutate(t *testing.T) {
	o := sampleOrder()
	before := o.Clone()

	_ = FormatText(o, DefaultOptions())
	_, err := FormatHTML(o, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, before, o)
}

func TestCenterText(t *testing.T) {
	assert.Equal(t, "   abcd", CenterText("abcd", 10))
	assert.Equal(t, "too long", CenterText("too long", 4))
	assert.Equal(t, "  Pão", CenterText("Pão", 7))
}

func TestFormatHTML(t *testing.T) {
	o := sampleOrder()
	o.Notes = "<b>sem cebola</b>"

	doc, err := FormatHTML(o, DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, doc, "width: 384px")
	assert.Contains(t, doc, "<h1>PEDIDO - Maria</h1>")
	assert.Contains(t, doc, "2unidade Pão")
	assert.Contains(t, doc, "R$ 22.95")
	assert.Contains(t, doc, "&lt;b&gt;sem cebola&lt;/b&gt;")
	assert.NotContains(t, doc, "Endereço de entrega")
	assert.Contains(t, doc, DefaultFooter)
}

func TestFormatHTML_OmitsAbsentBlocks(t *testing.T) {
	doc, err := FormatHTML(sampleOrder(), Options{Width: 32})
	require.NoError(t, err)

	assert.NotContains(t, doc, `class="address"`)
	assert.NotContains(t, doc, `class="notes"`)
	assert.NotContains(t, doc, `class="header"`)
	assert.NotContains(t, doc, `class="footer"`)
	assert.Contains(t, doc, `class="item"`)
	assert.Contains(t, doc, "TOTAL")
	assert.Contains(t, doc, "width: 256px")
}

func TestDispatcher_Printed(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		assert.Equal(t, "7b0c4a6e-5d7f-4a55-9d3e-0f3c2f1f9a10", r.URL.Query().Get("order"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ok, err := NewDispatcher(srv.URL, time.Second).Print(context.Background(), sampleOrder(), DefaultOptions())
	require.NoError(t, err)

	assert.True(t, ok)
	assert.Contains(t, body, "PEDIDO - Maria")
}

func TestDispatcher_Inconclusive(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ok, err := NewDispatcher(srv.URL, 50*time.Millisecond).Print(context.Background(), sampleOrder(), DefaultOptions())

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestDispatcher_Unavailable(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	for name, url := range map[string]string{"no sink": "", "sink error": failing.URL, "sink down": closedURL} {
		t.Run(name, func(t *testing.T) {
			ok, err := NewDispatcher(url, time.Second).Print(context.Background(), sampleOrder(), DefaultOptions())
			assert.False(t, ok)
			assert.ErrorIs(t, err, ErrSurfaceUnavailable)
		})
	}
}
