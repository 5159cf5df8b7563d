package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akbargherbal/gemini-fusion/internal/model"
)

// UpstreamError is a classified upstream provider failure. Kind is one
// of the model.Status* failure constants and doubles as the fail code
// recorded on a failed assistant message.
type UpstreamError struct {
	Kind string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Classify maps an upstream error to an *UpstreamError. Provider SDKs
// surface HTTP failures as opaque wrapped errors, so classification
// sniffs the status code and the usual phrasing. Context cancellation
// is passed through untouched: a client disconnect is not an upstream
// failure.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "401", "unauthorized", "permission denied", "api key not valid", "invalid api key", "invalid authentication"):
		return &UpstreamError{Kind: model.StatusAuthError, Err: err}
	case containsAny(msg, "429", "quota", "rate limit", "resource exhausted", "resource_exhausted"):
		return &UpstreamError{Kind: model.StatusRateLimited, Err: err}
	case containsAny(msg, "model_not_found", "unknown model", "no such model") ||
		(strings.Contains(msg, "model") && strings.Contains(msg, "not found")):
		return &UpstreamError{Kind: model.StatusModelError, Err: err}
	default:
		return &UpstreamError{Kind: model.StatusTransportError, Err: err}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
