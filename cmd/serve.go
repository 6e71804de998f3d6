package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/contentforge/contentforge/internal/metrics"
	"github.com/contentforge/contentforge/internal/model"
	"github.com/contentforge/contentforge/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the content generation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("shutdown incomplete", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter assembles the HTTP API.
func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	r.Use(metricsMiddleware)
	r.Use(identityMiddleware(cfg.Auth.JWTSecret))

	limiter := rate.NewLimiter(rate.Limit(cfg.Server.RatePerSecond), cfg.Server.RateBurst)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(rateLimitMiddleware(limiter)).Post("/generate", handleGenerate(env))
		r.With(rateLimitMiddleware(limiter)).Get("/results", handleResults(env))
		r.Post("/payment-claims", handleClaim(env))
		r.Get("/premium-status", handlePremiumStatus(env))
		r.Get("/support", handleSupport())
	})

	return r
}

type generateRequest struct {
	Platform  string `json:"platform"`
	Topic     string `json:"topic"`
	Precision *bool  `json:"precision,omitempty"`
}

type generateResponse struct {
	Platform         model.Platform          `json:"platform"`
	Topic            string                  `json:"topic"`
	PrecisionApplied bool                    `json:"precision_applied"`
	Content          *model.GeneratedContent `json:"content"`
	Upgrade          *upgradePayload         `json:"upgrade,omitempty"`
}

type upgradePayload struct {
	Message  string  `json:"message"`
	Currency string  `json:"currency"`
	Monthly  float64 `json:"monthly"`
	Weekly   float64 `json:"weekly"`
}

func handleGenerate(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		runGeneration(w, r, env, req.Platform, req.Topic, req.Precision)
	}
}

func handleResults(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		platform := q.Get("platform")
		topic := q.Get("topic")
		if platform == "" || topic == "" {
			// Mirrors the client-side redirect back to the input form.
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":    "platform and topic are required",
				"redirect": "/",
			})
			return
		}

		var precision *bool
		if v := q.Get("precision"); v != "" {
			p := v == "true" || v == "1"
			precision = &p
		}
		runGeneration(w, r, env, platform, topic, precision)
	}
}

func runGeneration(w http.ResponseWriter, r *http.Request, env *appEnv, platformStr, topic string, precision *bool) {
	ctx := r.Context()
	sess := env.sessions.Get(identityFrom(ctx))

	platform, err := model.ParsePlatform(platformStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := sess.SetPlatform(platform); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	precisionDenied := false
	if precision != nil {
		granted, err := sess.SetPrecisionToggle(ctx, *precision)
		if err != nil {
			zap.L().Warn("precision toggle failed", zap.Error(err))
		}
		precisionDenied = *precision && !granted
	}

	start := time.Now()
	result, err := sess.Submit(ctx, topic)
	if err != nil {
		switch {
		case eris.Is(err, session.ErrSuperseded):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "result superseded"})
		case eris.Is(err, model.ErrInvalidTopic):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			metrics.GenerationErrorsTotal.WithLabelValues(string(platform)).Inc()
			zap.L().Error("generation failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "generation failed"})
		}
		return
	}

	metrics.GenerationsTotal.WithLabelValues(string(platform), metrics.PrecisionLabel(result.PrecisionApplied)).Inc()
	metrics.GenerationDuration.WithLabelValues(string(platform)).Observe(time.Since(start).Seconds())

	resp := generateResponse{
		Platform:         result.Platform,
		Topic:            result.Topic,
		PrecisionApplied: result.PrecisionApplied,
		Content:          result.Content,
	}
	if precisionDenied {
		resp.Upgrade = &upgradePayload{
			Message:  "Precision mode requires a premium plan.",
			Currency: cfg.Pricing.Currency,
			Monthly:  cfg.Pricing.Monthly,
			Weekly:   cfg.Pricing.Weekly,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type claimRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

func handleClaim(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req claimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		sess := env.sessions.Get(identityFrom(r.Context()))
		result, err := sess.ClaimPayment(r.Context(), req.Amount, req.Currency)
		if err != nil {
			switch {
			case eris.Is(err, session.ErrNotSignedIn):
				metrics.PaymentClaimsTotal.WithLabelValues("rejected").Inc()
				writeJSON(w, http.StatusUnauthorized, result)
			case result != nil && result.Error == "invalid amount":
				metrics.PaymentClaimsTotal.WithLabelValues("rejected").Inc()
				writeJSON(w, http.StatusBadRequest, result)
			default:
				metrics.PaymentClaimsTotal.WithLabelValues("error").Inc()
				zap.L().Error("payment claim failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, result)
			}
			return
		}

		metrics.PaymentClaimsTotal.WithLabelValues("accepted").Inc()
		writeJSON(w, http.StatusOK, result)
	}
}

func handlePremiumStatus(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := env.sessions.Get(identityFrom(r.Context()))
		premium, err := sess.Premium(r.Context())
		if err != nil {
			zap.L().Warn("premium status resolution failed", zap.Error(err))
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"premium": premium,
			"pricing": upgradePayload{
				Message:  "Unlock precision mode with trending keywords.",
				Currency: cfg.Pricing.Currency,
				Monthly:  cfg.Pricing.Monthly,
				Weekly:   cfg.Pricing.Weekly,
			},
		})
	}
}

func handleSupport() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"upi_id":     cfg.Support.UPIID,
			"payee_name": cfg.Support.PayeeName,
			"upi_uri":    fmt.Sprintf("upi://pay?pa=%s&pn=%s", cfg.Support.UPIID, cfg.Support.PayeeName),
			"amounts":    cfg.Support.Amounts,
			"wallets":    cfg.Support.Wallets,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}
