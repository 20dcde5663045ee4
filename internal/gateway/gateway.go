package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/vnmchuo/grammar-gateway/internal/provider"
	"github.com/vnmchuo/grammar-gateway/internal/provider/gemini"
	"github.com/vnmchuo/grammar-gateway/internal/provider/openai"
)

// Gateway is the single entry point for AI completions. It holds no
// per-call state; the credential travels with each call.
type Gateway struct {
	transports map[provider.Selector]provider.Transport
	logger     *zap.Logger
	tracer     trace.Tracer
}

type Option func(*Gateway)

func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(g *Gateway) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

func New(transports map[provider.Selector]provider.Transport, opts ...Option) *Gateway {
	g := &Gateway{
		transports: transports,
		logger:     zap.NewNop(),
		tracer:     noop.NewTracerProvider().Tracer("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Settings configures the two stock transports.
type Settings struct {
	GeminiBaseURL string
	ChatBaseURL   string
	ChatLabel     string
	Timeout       time.Duration
}

// NewDefault wires the Gemini and OpenAI-compatible transports.
func NewDefault(s Settings, opts ...Option) *Gateway {
	client := &http.Client{Timeout: s.Timeout}
	return New(map[provider.Selector]provider.Transport{
		provider.PrimaryMultimodal: gemini.New(
			gemini.WithBaseURL(s.GeminiBaseURL),
			gemini.WithHTTPClient(client),
		),
		provider.ChatCompletion: openai.New(
			openai.WithBaseURL(s.ChatBaseURL),
			openai.WithLabel(s.ChatLabel),
			openai.WithHTTPClient(client),
		),
	}, opts...)
}

// CallOption tweaks a single Generate call.
type CallOption func(*ContentRequest)

// WithJSONMode overrides the default JSON mode of text-only calls.
func WithJSONMode(enabled bool) CallOption {
	return func(cr *ContentRequest) { cr.JSONMode = enabled }
}

func WithModel(model string) CallOption {
	return func(cr *ContentRequest) { cr.ModelOverride = model }
}

func WithTemperature(t float64) CallOption {
	return func(cr *ContentRequest) { cr.Temperature = t }
}

// Generate sends prompt (and image, when both its fields are set) to the
// selected provider and returns the completion text unmodified. Text-only
// calls request JSON output unless WithJSONMode(false) is given.
func (g *Gateway) Generate(ctx context.Context, credential string, sel provider.Selector, prompt string, image *provider.Image, opts ...CallOption) (string, error) {
	cr := ContentRequest{
		Prompt:   prompt,
		Image:    image,
		JSONMode: true,
	}
	for _, opt := range opts {
		opt(&cr)
	}

	res, err := g.Complete(ctx, credential, sel, cr)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// Complete is Generate with full control over the request and access to the
// transport result.
func (g *Gateway) Complete(ctx context.Context, credential string, sel provider.Selector, cr ContentRequest) (*provider.Result, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, &provider.Error{
			Kind:    provider.KindMissingCredential,
			Message: provider.ErrMissingCredential.Error(),
			Cause:   provider.ErrMissingCredential,
		}
	}

	if sel != provider.ChatCompletion {
		sel = provider.PrimaryMultimodal
	}
	transport, ok := g.transports[sel]
	if !ok {
		return nil, &provider.Error{
			Kind:    provider.KindTransport,
			Message: fmt.Sprintf("provider %q is not configured", sel),
		}
	}

	req := Build(sel, cr)

	ctx, span := g.tracer.Start(ctx, "gateway.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", string(sel)),
		attribute.String("ai.model", req.Model),
		attribute.Bool("ai.multimodal", HasImage(cr.Image)),
		attribute.Bool("ai.json_mode", req.JSONMode),
	)

	res, err := transport.Complete(ctx, credential, req)
	if err != nil {
		gerr := normalize(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, gerr.Message)
		g.logger.Warn("ai generation failed",
			zap.String("provider", string(sel)),
			zap.String("model", req.Model),
			zap.Int("status", gerr.StatusCode),
			zap.Error(err),
		)
		return nil, gerr
	}

	span.SetAttributes(
		attribute.Int("ai.tokens.input", res.InputTokens),
		attribute.Int("ai.tokens.output", res.OutputTokens),
	)
	g.logger.Debug("ai generation completed",
		zap.String("provider", string(sel)),
		zap.String("model", res.Model),
		zap.Int64("latency_ms", res.LatencyMs),
		zap.Int("completion_len", len(res.Content)),
	)
	return res, nil
}

// normalize folds any transport failure into a *provider.Error whose message
// is the provider's own text when known, else the generic failure message.
func normalize(err error) *provider.Error {
	var perr *provider.Error
	if errors.As(err, &perr) {
		if perr.Message != "" {
			return perr
		}
		return &provider.Error{
			Kind:       provider.KindTransport,
			Message:    provider.GenericFailureMessage,
			StatusCode: perr.StatusCode,
			Provider:   perr.Provider,
			Cause:      err,
		}
	}
	return &provider.Error{
		Kind:    provider.KindTransport,
		Message: provider.GenericFailureMessage,
		Cause:   err,
	}
}
