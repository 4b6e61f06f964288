package extract

import (
	"context"
	"errors"
	"strings"
)

// Kind classifies an extraction error at the collaborator boundary, so
// retry policy does not have to guess from message text. Classify still
// falls back to message patterns for errors that arrive untyped.
type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindRateLimit Kind = "rate_limit"
	KindNetwork   Kind = "network"
	KindServer    Kind = "server"
	KindAuth      Kind = "auth"
	KindBadInput  Kind = "bad_input"
	KindUnknown   Kind = "unknown"
)

// Transient reports whether errors of this kind are worth retrying.
func (k Kind) Transient() bool {
	switch k {
	case KindTimeout, KindRateLimit, KindNetwork, KindServer:
		return true
	}
	return false
}

// Error is a classified extraction failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Classify determines the kind of an error. A wrapped *Error wins; context
// deadline errors are timeouts; everything else is classified by message
// substrings, the best available signal for errors from third-party SDKs.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var xerr *Error
	if errors.As(err, &xerr) {
		return xerr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "too many requests") || strings.Contains(msg, "429"):
		return KindRateLimit
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") || strings.Contains(msg, "broken pipe"):
		return KindNetwork
	case strings.Contains(msg, "status 500") || strings.Contains(msg, "status 502") ||
		strings.Contains(msg, "status 503") || strings.Contains(msg, "status 504") ||
		strings.Contains(msg, "internal server error") || strings.Contains(msg, "overloaded"):
		return KindServer
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "authentication") || strings.Contains(msg, "status 401") ||
		strings.Contains(msg, "status 403"):
		return KindAuth
	default:
		return KindUnknown
	}
}

// IsTransient reports whether an error should be retried.
func IsTransient(err error) bool {
	return Classify(err).Transient()
}
