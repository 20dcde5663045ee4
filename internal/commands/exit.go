package commands

import (
	"errors"

	"github.com/vnmchuo/grammar-gateway/internal/grammar"
	"github.com/vnmchuo/grammar-gateway/internal/provider"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitProvider   = 2
	ExitNetwork    = 3
)

// exitError wraps an error with an exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// classify attaches an exit code to an operation error.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	var modelErr *grammar.ModelError
	switch {
	case errors.Is(err, provider.ErrMissingCredential), errors.Is(err, grammar.ErrInvalidInput):
		return exitWithCode(ExitValidation, err)
	case errors.Is(err, grammar.ErrMalformedResponse), errors.Is(err, grammar.ErrEmptyCompletion), errors.As(err, &modelErr):
		return exitWithCode(ExitProvider, err)
	default:
		return exitWithCode(ExitNetwork, err)
	}
}
