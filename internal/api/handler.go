// Package api serves the grammar-lab operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/vnmchuo/grammar-gateway/internal/auth"
	"github.com/vnmchuo/grammar-gateway/internal/gateway"
	"github.com/vnmchuo/grammar-gateway/internal/grammar"
	"github.com/vnmchuo/grammar-gateway/internal/metrics"
	"github.com/vnmchuo/grammar-gateway/internal/provider"
	"github.com/vnmchuo/grammar-gateway/internal/usage"
	"github.com/vnmchuo/grammar-gateway/pkg/ratelimit"
)

// Transliterator is what the transliteration endpoints need.
type Transliterator interface {
	Raw(ctx context.Context, text string) ([]byte, error)
	Suggest(ctx context.Context, word string) []string
}

type Deps struct {
	Generator       grammar.Generator
	Service         *grammar.Service
	Transliterator  Transliterator
	Usage           usage.Store
	Limiter         *ratelimit.Limiter // nil disables rate limiting
	Metrics         *metrics.Collector
	Tracer          trace.Tracer
	Logger          *zap.Logger
	DefaultProvider provider.Selector
}

type Handler struct {
	gen             grammar.Generator
	svc             *grammar.Service
	translit        Transliterator
	usage           usage.Store
	limiter         *ratelimit.Limiter
	metrics         *metrics.Collector
	tracer          trace.Tracer
	logger          *zap.Logger
	defaultProvider provider.Selector
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		gen:             d.Generator,
		svc:             d.Service,
		translit:        d.Transliterator,
		usage:           d.Usage,
		limiter:         d.Limiter,
		metrics:         d.Metrics,
		tracer:          d.Tracer,
		logger:          d.Logger,
		defaultProvider: d.DefaultProvider,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.tracer == nil {
		h.tracer = noop.NewTracerProvider().Tracer("api")
	}
	if h.usage == nil {
		h.usage = usage.NopStore{}
	}
	if h.defaultProvider == "" {
		h.defaultProvider = provider.PrimaryMultimodal
	}
	if h.svc == nil && h.gen != nil {
		h.svc = grammar.NewService(h.gen, h.logger)
	}
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// credentialFields is embedded in request bodies that may carry the key.
type credentialFields struct {
	APIKey   string `json:"apiKey,omitempty"`
	Provider string `json:"provider,omitempty"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// classify maps an operation error to an HTTP status and a metrics outcome.
func classify(err error) (int, string) {
	var modelErr *grammar.ModelError
	switch {
	case err == nil:
		return http.StatusOK, "ok"
	case errors.Is(err, provider.ErrMissingCredential):
		return http.StatusBadRequest, "missing_credential"
	case errors.Is(err, grammar.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, grammar.ErrMalformedResponse), errors.Is(err, grammar.ErrEmptyCompletion), errors.As(err, &modelErr):
		return http.StatusUnprocessableEntity, "malformed_response"
	default:
		return http.StatusBadGateway, "provider_error"
	}
}

func providerLabel(sel provider.Selector) string {
	if sel == provider.ChatCompletion {
		return "groq"
	}
	return "gemini"
}

type aiCall struct {
	action      string
	credentials credentialFields
	vision      bool
}

// runAI resolves the caller, applies the rate limit, runs op and writes
// either its result or the mapped error. Usage is recorded off the request
// path.
func (h *Handler) runAI(w http.ResponseWriter, r *http.Request, call aiCall, op func(ctx context.Context, creds grammar.Credentials) (any, error)) {
	ctx := r.Context()
	key, sel := auth.Resolve(ctx, call.credentials.APIKey, call.credentials.Provider, h.defaultProvider)
	clientID := auth.ClientID(key)
	requestID := auth.GetRequestID(ctx)
	label := providerLabel(sel)

	ctx, span := h.tracer.Start(ctx, "api."+call.action)
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", requestID),
		attribute.String("client_id", clientID),
		attribute.String("action", call.action),
		attribute.String("provider", label),
	)

	if key != "" && h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, clientID)
		if err != nil {
			h.logger.Warn("rate limiter unavailable", zap.String("client_id", clientID), zap.Error(err))
		}
		if err != nil || !allowed {
			if h.metrics != nil {
				h.metrics.RecordRateLimited(call.action)
			}
			w.Header().Set("Retry-After", "60s")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":       "rate limit exceeded",
				"retry_after": "60s",
			})
			return
		}
	}

	start := time.Now()
	out, err := op(ctx, grammar.Credentials{APIKey: key, Provider: sel})
	elapsed := time.Since(start)
	status, outcome := classify(err)

	if h.metrics != nil {
		h.metrics.RecordAICall(call.action, label, outcome, elapsed)
	}

	if key != "" {
		rec := &usage.Record{
			ClientID:  clientID,
			RequestID: requestID,
			Action:    call.action,
			Provider:  label,
			Model:     gateway.ModelFor(sel, call.vision),
			Status:    status,
			Success:   err == nil,
			LatencyMs: elapsed.Milliseconds(),
		}
		if err != nil {
			rec.Error = err.Error()
		}
		go func() {
			if err := h.usage.LogUsage(context.Background(), rec); err != nil {
				h.logger.Warn("failed to log usage", zap.String("request_id", rec.RequestID), zap.Error(err))
			}
		}()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		h.logger.Info("ai call failed",
			zap.String("request_id", requestID),
			zap.String("action", call.action),
			zap.String("provider", label),
			zap.Int("status", status),
			zap.Error(err),
		)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}
