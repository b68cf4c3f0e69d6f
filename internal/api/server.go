// Package api exposes the CRM over HTTP: customers and orders, segments,
// campaigns, and the delivery receipt webhook.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/crm-engine/internal/ai"
	"github.com/ignite/crm-engine/internal/bus"
	"github.com/ignite/crm-engine/internal/config"
	"github.com/ignite/crm-engine/internal/service/campaign"
	"github.com/ignite/crm-engine/internal/service/customer"
	"github.com/ignite/crm-engine/internal/service/delivery"
	"github.com/ignite/crm-engine/internal/service/segment"
)

// Handlers bundles the services the HTTP layer fronts.
type Handlers struct {
	Customers *customer.Service
	Segments  *segment.Service
	Campaigns *campaign.Service
	Delivery  *delivery.Service
	Assist    *ai.Assist
	Bus       bus.Bus
}

// Server is the HTTP front of the CRM engine.
type Server struct {
	cfg    config.ServerConfig
	server *http.Server
}

// NewServer builds the router and wraps it in an http.Server.
func NewServer(cfg config.ServerConfig, h *Handlers) *Server {
	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      Routes(h),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start runs the listener until Shutdown.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Routes configures the router.
func Routes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.SubmitCustomer)
			r.Post("/direct", h.CreateCustomer)
			r.Get("/{id}", h.GetCustomer)
			r.Patch("/{id}", h.SubmitCustomerUpdate)
			r.Patch("/{id}/direct", h.UpdateCustomer)
			r.Get("/{id}/orders", h.ListCustomerOrders)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.SubmitOrder)
			r.Post("/direct", h.CreateOrder)
		})

		r.Route("/segments", func(r chi.Router) {
			r.Get("/", h.ListSegments)
			r.Post("/", h.CreateSegment)
			r.Post("/preview", h.PreviewSegment)
			r.Post("/generate", h.GenerateSegmentRules)
			r.Get("/{id}", h.GetSegment)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.ListCampaigns)
			r.Post("/", h.CreateCampaign)
			r.Post("/message-suggestions", h.MessageSuggestions)
			r.Get("/{id}", h.GetCampaign)
			r.Post("/{id}/send", h.SendCampaign)
			r.Get("/{id}/logs", h.CampaignLogs)
			r.Get("/{id}/summary", h.CampaignSummary)
		})

		r.Post("/receipts", h.IngestReceipts)
	})

	return r
}
