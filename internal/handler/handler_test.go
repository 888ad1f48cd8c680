package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pedidos/internal/inference"
	"pedidos/internal/metrics"
	"pedidos/internal/model"
	"pedidos/internal/mw"
	"pedidos/internal/printer"
	"pedidos/internal/service"
	"pedidos/internal/store"
)

const (
	testSecret    = "handler-secret"
	mariaResponse = `{"customerName":"Maria","items":[{"name":"Pão","quantity":2,"medida":"unidade"}],"address":"Rua A, 10","notes":null}`
)

type stubLLM struct {
	raw string
	err error
}

func (s *stubLLM) Complete(_ context.Context, _, _ string) (string, error) {
	return s.raw, s.err
}

type env struct {
	srv    *httptest.Server
	llm    *stubLLM
	active *store.MemoryStore
	saved  *store.MemoryStore
}

func newEnv(t *testing.T, sinkURL string) *env {
	t.Helper()
	e := &env{
		llm:    &stubLLM{raw: mariaResponse},
		active: store.NewMemoryStore(),
		saved:  store.NewMemoryStore(),
	}
	reg := metrics.NewRegistry()
	orderSvc := service.NewOrderService(e.active, e.saved, e.llm, service.WithMetrics(reg))
	printSvc := service.NewPrintService(printer.NewDispatcher(sinkURL, time.Second), reg, 0, time.UTC)

	e.srv = httptest.NewServer(NewRouter(orderSvc, printSvc, reg, testSecret))
	t.Cleanup(e.srv.Close)
	return e
}

func (e *env) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *env) process(t *testing.T) model.Order {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/orders", `{"message":"Oi, aqui é a Maria, quero 2 pães"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.Order](t, resp)
}

func TestProcessOrder(t *testing.T) {
	e := newEnv(t, "")

	order := e.process(t)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "Maria", order.CustomerName)
	assert.Equal(t, "Rua A, 10", order.Address)
	assert.Empty(t, order.Notes)
	assert.Equal(t, model.StatusPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Total.IsZero())
}

func TestProcessOrder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		raw        string
		llmErr     error
		wantStatus int
	}{
		{name: "invalid json", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "blank message", body: `{"message":"   "}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{"message":"oi"}`, raw: "not json", wantStatus: http.StatusUnprocessableEntity},
		{
			name:       "unavailable",
			body:       `{"message":"oi"}`,
			llmErr:     fmt.Errorf("%w: status 500", inference.ErrUnavailable),
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, "")
			e.llm.raw, e.llm.err = tt.raw, tt.llmErr

			resp := e.do(t, http.MethodPost, "/api/orders", tt.body)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			n, err := e.active.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestListOrders(t *testing.T) {
	e := newEnv(t, "")

	resp := e.do(t, http.MethodGet, "/api/orders", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	e.process(t)
	e.process(t)

	resp = e.do(t, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Order](t, resp), 2)
}

func TestGetAndDeleteOrder(t *testing.T) {
	e := newEnv(t, "")
	order := e.process(t)

	resp := e.do(t, http.MethodGet, "/api/orders/"+order.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, order.ID, decode[model.Order](t, resp).ID)

	resp = e.do(t, http.MethodDelete, "/api/orders/"+order.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, "/api/orders/"+order.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/orders/"+order.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateOrder(t *testing.T) {
	e := newEnv(t, "")
	order := e.process(t)

	resp := e.do(t, http.MethodPatch, "/api/orders/"+order.ID,
		`{"customerName":"Maria Souza","items":[{"name":"Pão","quantity":2,"medida":"unidade","price":1.25},{"name":"Leite","quantity":1.5,"medida":"litro","price":4}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decode[model.Order](t, resp)
	assert.Equal(t, "Maria Souza", updated.CustomerName)
	assert.True(t, updated.Total.Equal(decimal.RequireFromString("8.5")), updated.Total.String())

	resp = e.do(t, http.MethodPatch, "/api/orders/"+order.ID, `{"items":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUpdateStatus(t *testing.T) {
	e := newEnv(t, "")
	order := e.process(t)

	resp := e.do(t, http.MethodPut, "/api/orders/"+order.ID+"/status", `{"status":"completed"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	got, err := e.active.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)

	resp = e.do(t, http.MethodPut, "/api/orders/"+order.ID+"/status", `{"status":"shipped"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = e.do(t, http.MethodPut, "/api/orders/missing/status", `{"status":"pending"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSavedOrdersFlow(t *testing.T) {
	e := newEnv(t, "")
	order := e.process(t)

	resp := e.do(t, http.MethodPost, "/api/orders/"+order.ID+"/save", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tpl := decode[model.Order](t, resp)
	assert.NotEqual(t, order.ID, tpl.ID)
	assert.True(t, tpl.Saved)

	resp = e.do(t, http.MethodGet, "/api/saved-orders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Order](t, resp), 1)

	resp = e.do(t, http.MethodPost, "/api/saved-orders/"+tpl.ID+"/use", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	used := decode[model.Order](t, resp)
	assert.Equal(t, model.StatusPending, used.Status)

	var handoff *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == mw.TemplateCookie {
			handoff = c
		}
	}
	require.NotNil(t, handoff)

	resp = e.do(t, http.MethodGet, "/api/orders/loaded", "", handoff)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, used.ID, decode[model.Order](t, resp).ID)
	require.NotEmpty(t, resp.Cookies())
	assert.Less(t, resp.Cookies()[0].MaxAge, 0)

	resp = e.do(t, http.MethodGet, "/api/orders/loaded", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, "/api/saved-orders/"+tpl.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/saved-orders/"+tpl.ID+"/use", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func handoffCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == mw.TemplateCookie {
			return c
		}
	}
	t.Fatal("no hand-off cookie in response")
	return nil
}

// bigOrder processes an order and gives it n items with long names.
func (e *env) bigOrder(t *testing.T, n int) model.Order {
	t.Helper()
	order := e.process(t)

	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"name":"Item número %d com uma descrição bem comprida","quantity":1.5,"medida":"kg","price":12.34}`, i)
	}
	resp := e.do(t, http.MethodPatch, "/api/orders/"+order.ID, `{"items":[`+strings.Join(items, ",")+`]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[model.Order](t, resp)
}

func TestUseTemplate_LargeOrderFitsInCookie(t *testing.T) {
	e := newEnv(t, "")
	order := e.bigOrder(t, 60)

	resp := e.do(t, http.MethodPost, "/api/orders/"+order.ID+"/save", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tpl := decode[model.Order](t, resp)

	resp = e.do(t, http.MethodPost, "/api/saved-orders/"+tpl.ID+"/use", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	used := decode[model.Order](t, resp)
	handoff := handoffCookie(t, resp)

	assert.Less(t, len(handoff.String()), 4096)

	resp = e.do(t, http.MethodGet, "/api/orders/loaded", "", handoff)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loaded := decode[model.Order](t, resp)
	assert.Equal(t, used.ID, loaded.ID)
	assert.Len(t, loaded.Items, 60)
	assert.True(t, loaded.Total.Equal(order.Total))
}

func TestLoadedOrder_DeletedBeforeRead(t *testing.T) {
	e := newEnv(t, "")
	order := e.process(t)
	resp := e.do(t, http.MethodPost, "/api/orders/"+order.ID+"/save", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tpl := decode[model.Order](t, resp)

	resp = e.do(t, http.MethodPost, "/api/saved-orders/"+tpl.ID+"/use", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	used := decode[model.Order](t, resp)
	handoff := handoffCookie(t, resp)

	resp = e.do(t, http.MethodDelete, "/api/orders/"+used.ID, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/orders/loaded", "", handoff)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestUpdateOrder_RejectsUnboundedNumbers(t *testing.T) {
	e := newEnv(t, "")
	order := e.process(t)

	for name, body := range map[string]string{
		"huge exponent":        `{"items":[{"name":"Pão","quantity":1e30000000,"price":0}]}`,
		"overflowing exponent": `{"items":[{"name":"Pão","quantity":1e2000000000,"price":1e2000000000}]}`,
		"tiny exponent":        `{"items":[{"name":"Pão","quantity":1,"price":1e-2000000000}]}`,
		"price above max":      `{"items":[{"name":"Pão","quantity":1,"price":10000000000}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			start := time.Now()

			resp := e.do(t, http.MethodPatch, "/api/orders/"+order.ID, body)

			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}

	got, err := e.active.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestListOrders_Search(t *testing.T) {
	e := newEnv(t, "")
	maria := e.process(t)
	e.llm.raw = `{"customerName":"João","items":[{"name":"Leite"}]}`
	joao := e.process(t)

	resp := e.do(t, http.MethodGet, "/api/orders?q=MARIA", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]model.Order](t, resp)
	require.Len(t, got, 1)
	assert.Equal(t, maria.ID, got[0].ID)

	resp = e.do(t, http.MethodGet, "/api/orders?q=rua%20a", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Order](t, resp), 1)

	resp = e.do(t, http.MethodGet, "/api/orders?q="+joao.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, joao.ID, decode[[]model.Order](t, resp)[0].ID)

	resp = e.do(t, http.MethodGet, "/api/orders?q=pizza", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/orders/"+joao.ID+"/save", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/saved-orders?q=jo%C3%A3o", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Order](t, resp), 1)

	resp = e.do(t, http.MethodGet, "/api/saved-orders?q=maria", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestLoadedOrder_TamperedCookie(t *testing.T) {
	e := newEnv(t, "")

	resp := e.do(t, http.MethodGet, "/api/orders/loaded", "", &http.Cookie{Name: mw.TemplateCookie, Value: "forged"})

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestReceipt(t *testing.T) {
	e := newEnv(t, "")
	order := e.process(t)

	resp := e.do(t, http.MethodGet, "/api/orders/"+order.ID+"/print?format=text&width=32&footer=false", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body := readAll(t, resp)
	assert.Contains(t, body, "PEDIDO - Maria")
	assert.Contains(t, body, "Rua A, 10")
	assert.NotContains(t, body, printer.DefaultFooter)

	resp = e.do(t, http.MethodGet, "/api/orders/"+order.ID+"/print?customHeader=Padaria", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, readAll(t, resp), "Padaria")

	resp = e.do(t, http.MethodGet, "/api/orders/"+order.ID+"/print?width=abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/saved-orders/"+order.ID+"/print", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPrintOrder(t *testing.T) {
	var received string
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.URL.Query().Get("order")
		w.WriteHeader(http.StatusOK)
	}))
	defer sink.Close()

	e := newEnv(t, sink.URL)
	order := e.process(t)

	resp := e.do(t, http.MethodPost, "/api/orders/"+order.ID+"/print", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[printResponse](t, resp).Printed)
	assert.Equal(t, order.ID, received)
}

func TestPrintOrder_NoSink(t *testing.T) {
	e := newEnv(t, "")
	order := e.process(t)

	resp := e.do(t, http.MethodPost, "/api/orders/"+order.ID+"/print", "")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t, "")
	e.process(t)

	resp := e.do(t, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readAll(t, resp)
	assert.Contains(t, body, `pedidos_extractions_total{result="ok"} 1`)
	assert.Contains(t, body, `pedidos_orders{store="active"} 1`)
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
