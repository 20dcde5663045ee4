// Package grammar builds the grammar-lab prompts, sends them through the AI
// gateway and validates the JSON the model sends back.
package grammar

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/vnmchuo/grammar-gateway/internal/gateway"
	"github.com/vnmchuo/grammar-gateway/internal/provider"
)

var (
	// ErrEmptyCompletion is returned when the model answered with blank text.
	ErrEmptyCompletion = errors.New("The AI returned an empty response. Please try again.")

	// ErrMalformedResponse wraps replies that are not JSON or lack expected fields.
	ErrMalformedResponse = errors.New("malformed AI response")

	// ErrInvalidInput wraps caller mistakes detected before any AI call.
	ErrInvalidInput = errors.New("invalid input")
)

// ModelError carries the message of an {"error": "..."} reply.
type ModelError struct {
	Message string
}

func (e *ModelError) Error() string { return e.Message }

// shapeError reports a reply missing its expected fields; the message is shown verbatim.
type shapeError struct {
	msg string
}

func (e *shapeError) Error() string { return e.msg }

func (e *shapeError) Unwrap() error { return ErrMalformedResponse }

type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Unwrap() error { return ErrInvalidInput }

func malformed(msg string) error { return &shapeError{msg: msg} }

func invalid(msg string) error { return &inputError{msg: msg} }

// Generator is the subset of the gateway the compilers depend on.
type Generator interface {
	Generate(ctx context.Context, credential string, sel provider.Selector, prompt string, image *provider.Image, opts ...gateway.CallOption) (string, error)
}

// Credentials identify the caller's key and chosen backend.
type Credentials struct {
	APIKey   string
	Provider provider.Selector
}

// WordPos is one token of a tagged sentence.
type WordPos struct {
	Word string `json:"word" yaml:"word"`
	POS  string `json:"pos" yaml:"pos"`
}

type TaggedSentence []WordPos

var punctuationJoiner = strings.NewReplacer(" .", ".", " ?", "?", " !", "!", " ,", ",")

// Text joins the words with single spaces and pulls . ? ! , onto the
// preceding word.
func (s TaggedSentence) Text() string {
	words := make([]string, len(s))
	for i, w := range s {
		words[i] = w.Word
	}
	return punctuationJoiner.Replace(strings.Join(words, " "))
}

type Service struct {
	gen    Generator
	logger *zap.Logger
}

func NewService(gen Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gen: gen, logger: logger}
}

// generateJSON runs a text-only JSON-mode call and decodes the reply into out.
func (s *Service) generateJSON(ctx context.Context, creds Credentials, action, prompt string, out any) error {
	text, err := s.gen.Generate(ctx, creds.APIKey, creds.Provider, prompt, nil, gateway.WithJSONMode(true))
	if err != nil {
		return err
	}
	if err := decodeJSON(text, out); err != nil {
		s.logger.Warn("undecodable ai reply",
			zap.String("action", action),
			zap.Int("reply_len", len(text)),
			zap.Error(err),
		)
		return err
	}
	return nil
}
