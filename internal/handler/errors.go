package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pedidos/internal/extraction"
	"pedidos/internal/inference"
	"pedidos/internal/model"
	"pedidos/internal/printer"
	"pedidos/internal/service"
	"pedidos/internal/store"
)

// writeError maps domain errors to status codes. Messages stay generic; the
// raw model output and upstream bodies never reach the client.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		http.Error(w, "message is empty", http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "order not found", http.StatusNotFound)
	case errors.Is(err, inference.ErrUnavailable):
		http.Error(w, "order extraction is unavailable, try again", http.StatusBadGateway)
	case errors.Is(err, extraction.ErrMalformed):
		http.Error(w, "could not read an order from this message", http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrInvalidItem), errors.Is(err, model.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, printer.ErrSurfaceUnavailable):
		http.Error(w, "print surface unavailable", http.StatusServiceUnavailable)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeList(w http.ResponseWriter, orders []model.Order) {
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}
