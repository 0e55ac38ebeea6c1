package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"walletwatch/internal/normalize"
	"walletwatch/internal/pipeline"
)

const maxBodyBytes = 8 << 20

// Pipeline runs one decoded payload.
type Pipeline interface {
	Handle(ctx context.Context, p normalize.Payload) (pipeline.Result, error)
}

// PriceAdmin exposes operator actions on the price cache.
type PriceAdmin interface {
	Clear()
	RefreshNativePrices(ctx context.Context) (map[string]float64, error)
}

// Handler serves the webhook, health, metrics and admin routes.
type Handler struct {
	pipeline Pipeline
	prices   PriceAdmin
	logger   *zap.Logger
	mux      *http.ServeMux
	now      func() time.Time
}

// New registers every route. prices may be nil, which disables the admin routes.
func New(p Pipeline, prices PriceAdmin, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{pipeline: p, prices: prices, logger: logger, mux: http.NewServeMux(), now: time.Now}

	h.mux.HandleFunc("POST /webhook/moralis", h.webhook(normalize.ProviderMoralis))
	h.mux.HandleFunc("POST /webhook/helius", h.webhook(normalize.ProviderHelius))
	h.mux.HandleFunc("GET /health", h.health)
	h.mux.Handle("GET /metrics", promhttp.Handler())
	if prices != nil {
		h.mux.HandleFunc("POST /admin/prices/clear", h.clearPrices)
		h.mux.HandleFunc("POST /admin/prices/refresh", h.refreshPrices)
	}

	return h.withRequestID(h.mux)
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (h *Handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		h.logger.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

type webhookResponse struct {
	Status string `json:"status"`
	pipeline.Result
}

// POST /webhook/{provider}: 400 for unreadable bodies, 422 for unknown chains.
func (h *Handler) webhook(provider normalize.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := h.logger.With(zap.String("request_id", RequestID(r.Context())), zap.String("provider", string(provider)))

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		payload, err := normalize.DecodePayload(provider, body)
		if err != nil {
			logger.Warn("invalid webhook body", zap.Error(err))
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}

		res, err := h.pipeline.Handle(r.Context(), payload)
		switch {
		case errors.Is(err, normalize.ErrUnknownChain):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		case err != nil:
			logger.Error("webhook failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, webhookResponse{Status: "ok", Result: res})
	}
}

// GET /health
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": h.now().Unix(),
	})
}

// POST /admin/prices/clear
func (h *Handler) clearPrices(w http.ResponseWriter, r *http.Request) {
	h.prices.Clear()
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

// POST /admin/prices/refresh
func (h *Handler) refreshPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.prices.RefreshNativePrices(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("refresh failed: %s", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"updated": len(prices),
		"prices":  prices,
	})
}
