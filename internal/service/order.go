package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pedidos/internal/extraction"
	"pedidos/internal/inference"
	"pedidos/internal/metrics"
	"pedidos/internal/model"
	"pedidos/internal/store"
)

var ErrEmptyMessage = errors.New("empty order message")

// Template reuse modes.
const (
	TemplateClone     = "clone"
	TemplateReextract = "reextract"
)

type OrderService struct {
	active       store.OrderStore
	saved        store.OrderStore
	llm          inference.Client
	metrics      *metrics.Registry
	templateMode string

	now   func() time.Time
	newID func() string
}

type Option func(*OrderService)

func WithMetrics(m *metrics.Registry) Option {
	return func(s *OrderService) { s.metrics = m }
}

func WithTemplateMode(mode string) Option {
	return func(s *OrderService) { s.templateMode = mode }
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

func NewOrderService(active, saved store.OrderStore, llm inference.Client, opts ...Option) *OrderService {
	s := &OrderService{
		active:       active,
		saved:        saved,
		llm:          llm,
		templateMode: TemplateClone,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessOrder extracts an order from a WhatsApp message and appends it to
// the active store. Nothing is stored when extraction fails.
func (s *OrderService) ProcessOrder(ctx context.Context, message string) (model.Order, error) {
	if strings.TrimSpace(message) == "" {
		return model.Order{}, ErrEmptyMessage
	}

	prompt := extraction.BuildPrompt(message)

	start := time.Now()
	raw, err := s.llm.Complete(ctx, prompt.System, prompt.User)
	s.observeDuration(time.Since(start))
	if err != nil {
		s.countExtraction(metrics.ResultUnavailable)
		slog.Error("inference call failed", "error", err)
		return model.Order{}, fmt.Errorf("process order: %w", err)
	}
	slog.Debug("inference response", "raw", raw)

	res, err := extraction.Parse(raw)
	if err != nil {
		s.countExtraction(metrics.ResultMalformed)
		var me *extraction.MalformedError
		if errors.As(err, &me) {
			slog.Warn("malformed extraction", "reason", me.Reason, "raw", me.Raw)
		}
		return model.Order{}, fmt.Errorf("process order: %w", err)
	}

	order := s.newOrder(res, message)
	if err := s.active.Append(ctx, order); err != nil {
		return model.Order{}, fmt.Errorf("store order: %w", err)
	}
	s.countExtraction(metrics.ResultOK)
	s.refreshGauges(ctx)

	slog.Info("order processed", "id", order.ID, "customer", order.CustomerName, "items", len(order.Items))
	return order, nil
}

// newOrder builds a pending order with fresh identity. Prices start at zero
// and are always entered by a person.
func (s *OrderService) newOrder(res extraction.Result, message string) model.Order {
	items := make([]model.OrderItem, len(res.Items))
	for i, it := range res.Items {
		items[i] = model.OrderItem{
			Name:     it.Name,
			Quantity: it.Quantity,
			Unit:     it.Unit,
			Price:    decimal.Zero,
		}
	}
	return model.Order{
		ID:              s.newID(),
		CustomerName:    res.CustomerName,
		Items:           items,
		Address:         res.Address,
		Notes:           res.Notes,
		Total:           decimal.Zero,
		Timestamp:       s.now().UnixMilli(),
		OriginalMessage: message,
		Status:          model.StatusPending,
	}
}

// List returns active orders, newest first, narrowed to those matching query.
func (s *OrderService) List(ctx context.Context, query string) ([]model.Order, error) {
	orders, err := s.active.List(ctx)
	if err != nil {
		return nil, err
	}
	return model.Filter(orders, query), nil
}

func (s *OrderService) Get(ctx context.Context, id string) (model.Order, error) {
	return s.active.Get(ctx, id)
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	if err := s.active.Remove(ctx, id); err != nil {
		return err
	}
	s.refreshGauges(ctx)
	return nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	if err := s.active.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	slog.Info("order status updated", "id", id, "status", status)
	return nil
}

func (s *OrderService) UpdateFields(ctx context.Context, id string, p model.OrderPatch) (model.Order, error) {
	if err := p.Validate(); err != nil {
		return model.Order{}, err
	}
	return s.active.UpdateFields(ctx, id, p)
}

// SaveOrder copies an active order into the saved store for later reuse.
func (s *OrderService) SaveOrder(ctx context.Context, id string) (model.Order, error) {
	src, err := s.active.Get(ctx, id)
	if err != nil {
		return model.Order{}, err
	}

	tpl := src.Clone()
	tpl.ID = s.newID()
	tpl.Timestamp = s.now().UnixMilli()
	tpl.Saved = true
	tpl.Recalculate()

	if err := s.saved.Append(ctx, tpl); err != nil {
		return model.Order{}, fmt.Errorf("save order: %w", err)
	}
	s.refreshGauges(ctx)
	return tpl, nil
}

func (s *OrderService) ListSaved(ctx context.Context, query string) ([]model.Order, error) {
	orders, err := s.saved.List(ctx)
	if err != nil {
		return nil, err
	}
	return model.Filter(orders, query), nil
}

func (s *OrderService) GetSaved(ctx context.Context, id string) (model.Order, error) {
	return s.saved.Get(ctx, id)
}

func (s *OrderService) DeleteSaved(ctx context.Context, id string) error {
	if err := s.saved.Remove(ctx, id); err != nil {
		return err
	}
	s.refreshGauges(ctx)
	return nil
}

// UseTemplate turns a saved order into a new active order. In clone mode the
// template is copied under a new identity; in reextract mode its original
// message is processed again and the template's items overlay the result.
func (s *OrderService) UseTemplate(ctx context.Context, id string) (model.Order, error) {
	tpl, err := s.saved.Get(ctx, id)
	if err != nil {
		return model.Order{}, err
	}

	if s.templateMode == TemplateReextract {
		return s.reextract(ctx, tpl)
	}

	order := tpl.Clone()
	order.ID = s.newID()
	order.Timestamp = s.now().UnixMilli()
	order.Status = model.StatusPending
	order.Saved = false
	order.Recalculate()

	if err := s.active.Append(ctx, order); err != nil {
		return model.Order{}, fmt.Errorf("use template: %w", err)
	}
	s.refreshGauges(ctx)
	return order, nil
}

func (s *OrderService) reextract(ctx context.Context, tpl model.Order) (model.Order, error) {
	fresh, err := s.ProcessOrder(ctx, tpl.OriginalMessage)
	if err != nil {
		return model.Order{}, err
	}

	items := tpl.Clone().Items
	overlaid, err := s.active.UpdateFields(ctx, fresh.ID, model.OrderPatch{Items: &items})
	if err != nil {
		if rmErr := s.active.Remove(ctx, fresh.ID); rmErr != nil {
			slog.Error("failed to drop half-built order", "id", fresh.ID, "error", rmErr)
		}
		s.refreshGauges(ctx)
		return model.Order{}, fmt.Errorf("overlay template: %w", err)
	}
	return overlaid, nil
}

func (s *OrderService) countExtraction(result string) {
	if s.metrics != nil {
		s.metrics.Extractions.WithLabelValues(result).Inc()
	}
}

func (s *OrderService) observeDuration(d time.Duration) {
	if s.metrics != nil {
		s.metrics.ExtractionDuration.Observe(d.Seconds())
	}
}

func (s *OrderService) refreshGauges(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if n, err := s.active.Count(ctx); err == nil {
		s.metrics.Orders.WithLabelValues("active").Set(float64(n))
	}
	if n, err := s.saved.Count(ctx); err == nil {
		s.metrics.Orders.WithLabelValues("saved").Set(float64(n))
	}
}
