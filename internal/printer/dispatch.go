package printer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"pedidos/internal/model"
)

var ErrSurfaceUnavailable = errors.New("print surface unavailable")

const DefaultTimeout = 5 * time.Second

// Dispatcher hands rendered receipts to an HTTP print sink.
type Dispatcher struct {
	sinkURL string
	timeout time.Duration
	http    *resty.Client
}

func NewDispatcher(sinkURL string, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		sinkURL: sinkURL,
		timeout: timeout,
		http:    resty.New(),
	}
}

// Print sends the HTML receipt. It returns false with a nil error when the
// sink did not answer within the timeout; the job may or may not have printed.
func (d *Dispatcher) Print(ctx context.Context, order model.Order, opts Options) (bool, error) {
	if d.sinkURL == "" {
		return false, fmt.Errorf("%w: no print sink configured", ErrSurfaceUnavailable)
	}

	doc, err := FormatHTML(order, opts)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/html; charset=utf-8").
		SetQueryParam("order", order.ID).
		SetBody(doc).
		Post(d.sinkURL)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("%w: sink answered %d", ErrSurfaceUnavailable, resp.StatusCode())
	}
	return true, nil
}
