package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vnmchuo/grammar-gateway/internal/auth"
)

// NewRouter mounts every endpoint. Credentials are per request, so all
// routes sit behind the same extraction middleware.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(auth.NewMiddleware())
	r.Use(requestLogger(h.logger))

	// Public routes
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"grammarlab"}`))
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/tenses", h.HandleTenses)
		r.Get("/transliterate", h.HandleTransliterate)
		r.Get("/transliterate/word", h.HandleTransliterateWord)
		r.Get("/usage", h.HandleUsage)

		r.Post("/generate", h.HandleGenerate)
		r.Post("/sentences", h.HandleSentence)
		r.Post("/transform/{action}", h.HandleTransform)
		r.Post("/hindi/tense", h.HandleHindiTense)
		r.Post("/suggestions", h.HandleSuggestions)
		r.Post("/ocr", h.HandleOCR)
	})
	return r
}

// requestLogger never logs headers; they carry the caller's provider key.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("request_id", auth.GetRequestID(r.Context())),
			)
		})
	}
}
