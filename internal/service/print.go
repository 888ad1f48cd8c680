package service

import (
	"context"
	"log/slog"
	"time"

	"pedidos/internal/metrics"
	"pedidos/internal/model"
	"pedidos/internal/printer"
)

type PrintService struct {
	dispatcher *printer.Dispatcher
	metrics    *metrics.Registry
	width      int
	location   *time.Location
}

func NewPrintService(d *printer.Dispatcher, m *metrics.Registry, width int, loc *time.Location) *PrintService {
	if loc == nil {
		loc = time.UTC
	}
	return &PrintService{dispatcher: d, metrics: m, width: width, location: loc}
}

// Options returns the configured defaults for receipts.
func (s *PrintService) Options() printer.Options {
	opts := printer.DefaultOptions()
	if s.width > 0 {
		opts.Width = s.width
	}
	opts.Location = s.location
	return opts
}

func (s *PrintService) Print(ctx context.Context, order model.Order, opts printer.Options) (bool, error) {
	printed, err := s.dispatcher.Print(ctx, order, opts)
	switch {
	case err != nil:
		s.count(metrics.PrintUnavailable)
		slog.Error("print dispatch failed", "id", order.ID, "error", err)
	case !printed:
		s.count(metrics.PrintInconclusive)
		slog.Warn("print sink did not answer in time", "id", order.ID)
	default:
		s.count(metrics.PrintPrinted)
	}
	return printed, err
}

func (s *PrintService) count(outcome string) {
	if s.metrics != nil {
		s.metrics.PrintDispatches.WithLabelValues(outcome).Inc()
	}
}
