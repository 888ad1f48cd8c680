package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pedidos/internal/mw"
	"pedidos/internal/service"
)

func SaveOrderHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tpl, err := orderSvc.SaveOrder(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tpl)
	}
}

func ListSavedHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := orderSvc.ListSaved(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeList(w, orders)
	}
}

func DeleteSavedHandler(orderSvc *service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := orderSvc.DeleteSaved(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// UseTemplateHandler promotes a saved order to a new active order and leaves
// it in the hand-off cookie for the processor view.
func UseTemplateHandler(orderSvc *service.OrderService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := orderSvc.UseTemplate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}

		if err := mw.SetTemplateCookie(w, order.ID, secret); err != nil {
			slog.Error("template hand-off failed", "id", order.ID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, order)
	}
}
