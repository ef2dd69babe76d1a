package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"precificador/internal/catalog"
	"precificador/internal/config"
	"precificador/internal/db"
	"precificador/internal/migrations"
	"precificador/internal/pricing"
	"precificador/internal/seed"
	"precificador/internal/shipping"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type server struct {
	db         *sql.DB
	products   *catalog.Store
	shipping   *shipping.Table
	policyPath string
	apiKey     string

	// engine holds the active pricing service; reloads swap the whole
	// value, requests in flight keep the table they started with.
	engine atomic.Pointer[pricing.Service]
}

func newServer(database *sql.DB, table *shipping.Table, policyPath, apiKey string) (*server, error) {
	srv := &server{
		db:         database,
		products:   catalog.NewStore(database),
		shipping:   table,
		policyPath: policyPath,
		apiKey:     apiKey,
	}
	if err := srv.reloadPolicies(); err != nil {
		return nil, err
	}
	return srv, nil
}

// reloadPolicies builds a fresh engine from the policy file and swaps it
// in. On failure the running engine stays untouched.
func (s *server) reloadPolicies() error {
	policies, err := pricing.LoadPolicies(s.policyPath)
	if err != nil {
		return err
	}
	svc, err := pricing.NewService(policies)
	if err != nil {
		return err
	}
	s.engine.Store(svc)
	return nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)

	r.Post("/pricing/quote", s.handleQuote)
	r.Post("/pricing/validate", s.handleValidate)
	r.Get("/pricing/policies", s.handlePolicies)
	r.Get("/pricing/shipping-estimate", s.handleShippingEstimate)
	r.Post("/pricing/policies/reload", s.requireAPIKey(s.handleReload))

	r.Get("/products", s.handleProductsList)
	r.Get("/products/{sku}", s.handleProductGet)
	r.Get("/products/{sku}/quote", s.handleProductQuote)
	r.Post("/products", s.requireAPIKey(s.handleProductUpsert))

	return r
}

func main() {
	cfg := config.Load()

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		logger.Warn().Str("level", cfg.LogLevel).Msg("unknown LOG_LEVEL, keeping info")
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	if err := migrations.Up(database, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	stats, err := seed.Run(database)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}
	logger.Info().Int("inserts", stats.Inserts).Int("skipped", stats.Skipped).Msg("catalog seeded")

	table, err := shipping.Load(cfg.ShippingTablePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load shipping table")
	}

	srv, err := newServer(database, table, cfg.PolicyPath, cfg.APIKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("load channel policies")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PolicyPath != "" {
		go srv.watchPolicies(ctx, time.Duration(cfg.PolicyReloadSeconds)*time.Second)
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.routes(),
	}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		renderJSON(w, http.StatusServiceUnavailable, errorBody{Error: "unhealthy", Message: err.Error()})
		return
	}
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// errorBody is the JSON shape of every error response. Error is the
// machine-readable discriminator; the other fields depend on it.
type errorBody struct {
	Error             string               `json:"error"`
	Message           string               `json:"message,omitempty"`
	Fields            []pricing.FieldError `json:"fields,omitempty"`
	SupportedChannels []string             `json:"supported_channels,omitempty"`
	RateSum           float64              `json:"rate_sum,omitempty"`
}

func renderJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().Err(err).Msg("encode response")
	}
}

// decodeJSON decodes a request body strictly: unknown fields anywhere in
// the payload are an error, so typos never pass as defaults.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("corpo JSON inválido: %v", err)
	}
	return nil
}

// renderPricingError maps the engine's error taxonomy onto HTTP. Request
// faults are 422 with a discriminator; anything else is a 500.
func renderPricingError(w http.ResponseWriter, err error) {
	var validation *pricing.ValidationError
	if errors.As(err, &validation) {
		renderJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:  "validation",
			Fields: validation.Fields,
		})
		return
	}

	var unsupported *pricing.UnsupportedChannelError
	if errors.As(err, &unsupported) {
		renderJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:             "unsupported_channel",
			Message:           fmt.Sprintf("canal %q não é suportado", unsupported.Channel),
			SupportedChannels: unsupported.Supported,
		})
		return
	}

	var infeasible *pricing.InfeasibleRatesError
	if errors.As(err, &infeasible) {
		renderJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "infeasible_rates",
			Message: "a soma das taxas do canal atinge ou excede 100% do preço",
			RateSum: infeasible.RateSum,
		})
		return
	}

	logger.Error().Err(err).Msg("quote failed")
	renderJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
}
