package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying generation failures. Callers branch on these
// with errors.Is to choose an HTTP status and a user-facing remediation hint.
var (
	// ErrAuth indicates a missing or rejected credential. Check the API key.
	ErrAuth = errors.New("authentication failed")

	// ErrRateLimited indicates the provider refused the request due to rate
	// or quota limits. Retry later.
	ErrRateLimited = errors.New("rate limited")

	// ErrService indicates any other upstream failure (network, 5xx,
	// timeout). The request may succeed on retry.
	ErrService = errors.New("generation service unavailable")
)

// classify wraps an upstream error with the matching sentinel so callers can
// branch on errors.Is without depending on provider SDK error types. The
// SDKs do not expose a common error taxonomy, so this matches on status
// codes and well-known phrases in the error text.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrService) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrService, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "401", "403", "unauthorized", "forbidden", "invalid api key", "invalid_api_key", "api key not valid", "authentication"):
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case containsAny(msg, "429", "rate limit", "rate_limit", "too many requests", "quota", "resource_exhausted", "throttl"):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	default:
		return fmt.Errorf("%w: %v", ErrService, err)
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
