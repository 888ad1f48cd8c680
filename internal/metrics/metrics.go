package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extraction results.
const (
	ResultOK          = "ok"
	ResultUnavailable = "unavailable"
	ResultMalformed   = "malformed"
)

// Print dispatch outcomes.
const (
	PrintPrinted      = "printed"
	PrintInconclusive = "inconclusive"
	PrintUnavailable  = "unavailable"
)

type Registry struct {
	reg                *prometheus.Registry
	Extractions        *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	PrintDispatches    *prometheus.CounterVec
	Orders             *prometheus.GaugeVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	extractions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pedidos_extractions_total",
		Help: "Order extractions by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pedidos_extraction_duration_seconds",
		Help:    "Time spent waiting on the inference API.",
		Buckets: prometheus.DefBuckets,
	})
	prints := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pedidos_print_dispatch_total",
		Help: "Print dispatches by outcome.",
	}, []string{"outcome"})
	orders := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pedidos_orders",
		Help: "Orders currently held, per store.",
	}, []string{"store"})

	r.MustRegister(extractions, duration, prints, orders)
	return &Registry{
		reg:                r,
		Extractions:        extractions,
		ExtractionDuration: duration,
		PrintDispatches:    prints,
		Orders:             orders,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
