// Package auth pulls the caller's provider credential and backend choice out
// of incoming requests. Keys are never stored; only their hash is used to
// identify a client.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vnmchuo/grammar-gateway/internal/provider"
)

const (
	ProviderHeader  = "X-AI-Provider"
	RequestIDHeader = "X-Request-ID"
)

type Middleware func(next http.Handler) http.Handler

type contextKey string

const (
	credentialKey contextKey = "credential"
	providerKey   contextKey = "provider"
	requestIDKey  contextKey = "request_id"
)

// NewMiddleware tags each request with an id and copies the bearer token and
// provider header into the context. Requests without a token pass through;
// the credential may still arrive in the body.
func NewMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			ctx = context.WithValue(ctx, requestIDKey, requestID)
			w.Header().Set(RequestIDHeader, requestID)

			if key := BearerToken(r.Header.Get("Authorization")); key != "" {
				ctx = context.WithValue(ctx, credentialKey, key)
			}
			if p := strings.TrimSpace(r.Header.Get(ProviderHeader)); p != "" {
				ctx = context.WithValue(ctx, providerKey, p)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken returns the token of an "Authorization: Bearer ..." value.
func BearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// Resolve picks the credential and selector for a call. Header values win
// over body values. An empty provider means fallback and an unknown one
// means the primary provider.
func Resolve(ctx context.Context, bodyKey, bodyProvider string, fallback provider.Selector) (string, provider.Selector) {
	key := GetCredential(ctx)
	if key == "" {
		key = strings.TrimSpace(bodyKey)
	}
	p := GetProvider(ctx)
	if p == "" {
		p = bodyProvider
	}
	if strings.TrimSpace(p) == "" {
		return key, fallback
	}
	sel, err := provider.ParseSelector(p)
	if err != nil {
		return key, provider.PrimaryMultimodal
	}
	return key, sel
}

// ClientID is a stable, non-reversible identifier for a credential.
func ClientID(key string) string {
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// Helpers to extract from context
func GetCredential(ctx context.Context) string {
	if v, ok := ctx.Value(credentialKey).(string); ok {
		return v
	}
	return ""
}

func GetProvider(ctx context.Context) string {
	if v, ok := ctx.Value(providerKey).(string); ok {
		return v
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Helpers for testing
func WithCredential(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, credentialKey, key)
}

func WithProvider(ctx context.Context, p string) context.Context {
	return context.WithValue(ctx, providerKey, p)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
