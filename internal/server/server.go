// Package server monta o roteador HTTP do marketplace.
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/agreement"
	"github.com/KromaEnergia/api-marketplace/internal/auth"
	"github.com/KromaEnergia/api-marketplace/internal/config"
	"github.com/KromaEnergia/api-marketplace/internal/contact"
	"github.com/KromaEnergia/api-marketplace/internal/demand"
	"github.com/KromaEnergia/api-marketplace/internal/disclosure"
	"github.com/KromaEnergia/api-marketplace/internal/match"
	"github.com/KromaEnergia/api-marketplace/internal/matching"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/negotiation"
	"github.com/KromaEnergia/api-marketplace/internal/notify"
	"github.com/KromaEnergia/api-marketplace/internal/ratelimit"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
	"github.com/KromaEnergia/api-marketplace/internal/supply"
	"github.com/KromaEnergia/api-marketplace/internal/utils"
	"github.com/KromaEnergia/api-marketplace/internal/workflow"
)

// Deps são as dependências já construídas pelo comando serve.
type Deps struct {
	DB        *gorm.DB
	Store     *repository.Store
	Publisher notify.Publisher
	Limiter   ratelimit.Limiter
	Config    *config.Config
	Logger    *zap.Logger
}

// NewRouter monta serviços, handlers e rotas. Rotas fora de /auth, /health e
// /metrics exigem access token.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.L()
	}
	cfg := d.Config

	engine := matching.NewEngine(d.DB, d.Store, matching.ScorerFromConfig(cfg.Matching), d.Publisher, logger)
	disc := disclosure.NewService(d.DB, d.Store, d.Publisher, logger)
	wf := workflow.NewService(d.DB, d.Store, d.Publisher, logger)
	tokens := auth.NewTokenIssuer(cfg.Auth)

	authHandler := auth.NewHandler(d.DB, d.Store.Users, tokens, d.Limiter, cfg.Auth, logger)
	demandHandler := demand.NewHandler(demand.NewService(d.DB, d.Store, engine, disc, logger))
	supplyHandler := supply.NewHandler(supply.NewService(d.DB, d.Store, engine, disc, logger))
	matchHandler := match.NewHandler(disc)
	contactHandler := contact.NewHandler(disc)
	negotiationHandler := negotiation.NewHandler(wf)
	agreementHandler := agreement.NewHandler(wf)

	r := mux.NewRouter()
	r.Use(logRequests(logger))

	r.HandleFunc("/health", health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Rotas públicas de sessão
	r.HandleFunc("/auth/register", authHandler.RegisterHTTP).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.LoginHTTP).Methods("POST")
	r.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST")
	r.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")

	api := r.NewRoute().Subrouter()
	api.Use(auth.MiddlewareAutenticacao(tokens))

	manufacturerOnly := auth.RequireRole(models.RoleManufacturer)
	supplierOnly := auth.RequireRole(models.RoleSupplier)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")

	// Demanda
	api.Handle("/rfqs", manufacturerOnly(http.HandlerFunc(demandHandler.CriarRFQ))).Methods("POST")
	api.HandleFunc("/rfqs", demandHandler.ListarRFQs).Methods("GET")
	api.Handle("/offtake-baselines", manufacturerOnly(http.HandlerFunc(demandHandler.CriarOfftake))).Methods("POST")
	api.HandleFunc("/offtake-baselines", demandHandler.ListarOfftakes).Methods("GET")

	// Oferta
	api.Handle("/supply-listings", supplierOnly(http.HandlerFunc(supplyHandler.Criar))).Methods("POST")
	api.HandleFunc("/supply-listings", supplyHandler.Listar).Methods("GET")

	// Matches e divulgação
	api.HandleFunc("/matches", matchHandler.Listar).Methods("GET")
	api.HandleFunc("/matches/{id}/negotiations", negotiationHandler.ListarPorMatch).Methods("GET")
	api.HandleFunc("/contact-requests", contactHandler.Criar).Methods("POST")
	api.HandleFunc("/contact-requests", contactHandler.Listar).Methods("GET")
	api.HandleFunc("/contact-requests/{id}/accept", contactHandler.Aceitar).Methods("POST")

	// Negociação e acordos
	api.HandleFunc("/negotiations", negotiationHandler.Criar).Methods("POST")
	api.HandleFunc("/agreements", agreementHandler.Criar).Methods("POST")
	api.HandleFunc("/agreements", agreementHandler.Listar).Methods("GET")
	api.HandleFunc("/agreements/{id}", agreementHandler.BuscarPorID).Methods("GET")
	api.HandleFunc("/agreements/{id}/execute", agreementHandler.Executar).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
