package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pedidos/internal/model"
	"pedidos/internal/printer"
	"pedidos/internal/service"
)

var errBadWidth = errors.New("width must be a number of at least 16 columns")

type orderLookup func(ctx context.Context, id string) (model.Order, error)

type printResponse struct {
	Printed bool `json:"printed"`
}

// printOptions reads receipt options from the query, starting from the
// service defaults.
func printOptions(q url.Values, defaults printer.Options) (printer.Options, error) {
	opts := defaults
	if v := q.Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 16 {
			return opts, errBadWidth
		}
		opts.Width = n
	}
	for key, dst := range map[string]*bool{"header": &opts.ShowHeader, "footer": &opts.ShowFooter} {
		if v := q.Get(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, err
			}
			*dst = b
		}
	}
	if v := q.Get("customHeader"); v != "" {
		opts.CustomHeader = v
	}
	if v := q.Get("customFooter"); v != "" {
		opts.CustomFooter = v
	}
	return opts, nil
}

// ReceiptHandler renders the printable document for an order, as HTML by
// default or as monospace text with format=text.
func ReceiptHandler(lookup orderLookup, printSvc *service.PrintService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := printOptions(r.URL.Query(), printSvc.Options())
		if err != nil {
			http.Error(w, "invalid print options", http.StatusBadRequest)
			return
		}

		order, err := lookup(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}

		if r.URL.Query().Get("format") == "text" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(printer.FormatText(order, opts)))
			return
		}

		doc, err := printer.FormatHTML(order, opts)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write([]byte(doc)); err != nil {
			slog.Error("write receipt", "error", err)
		}
	}
}

// PrintOrderHandler sends the receipt to the print sink. An inconclusive
// dispatch answers 202 with printed=false.
func PrintOrderHandler(orderSvc *service.OrderService, printSvc *service.PrintService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := printOptions(r.URL.Query(), printSvc.Options())
		if err != nil {
			http.Error(w, "invalid print options", http.StatusBadRequest)
			return
		}

		order, err := orderSvc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}

		printed, err := printSvc.Print(r.Context(), order, opts)
		if err != nil {
			writeError(w, err)
			return
		}

		status := http.StatusOK
		if !printed {
			status = http.StatusAccepted
		}
		writeJSON(w, status, printResponse{Printed: printed})
	}
}
