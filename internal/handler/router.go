package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pedidos/internal/metrics"
	"pedidos/internal/mw"
	"pedidos/internal/service"
)

func NewRouter(orderSvc *service.OrderService, printSvc *service.PrintService, reg *metrics.Registry, secret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", ProcessOrderHandler(orderSvc))
		r.Get("/", ListOrdersHandler(orderSvc))
		r.With(mw.TemplateMiddleware(secret)).Get("/loaded", LoadedOrderHandler(orderSvc))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", GetOrderHandler(orderSvc))
			r.Patch("/", UpdateOrderHandler(orderSvc))
			r.Delete("/", DeleteOrderHandler(orderSvc))
			r.Put("/status", UpdateStatusHandler(orderSvc))
			r.Post("/save", SaveOrderHandler(orderSvc))
			r.Get("/print", ReceiptHandler(orderSvc.Get, printSvc))
			r.Post("/print", PrintOrderHandler(orderSvc, printSvc))
		})
	})

	r.Route("/api/saved-orders", func(r chi.Router) {
		r.Get("/", ListSavedHandler(orderSvc))
		r.Delete("/{id}", DeleteSavedHandler(orderSvc))
		r.Get("/{id}/print", ReceiptHandler(orderSvc.GetSaved, printSvc))
		r.Post("/{id}/use", UseTemplateHandler(orderSvc, secret))
	})

	if reg != nil {
		r.Handle("/metrics", reg.Handler())
	}

	return r
}
