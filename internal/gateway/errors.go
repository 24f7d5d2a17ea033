package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/rsaito/github-compare/internal/domain"
)

// ErrorKind categorizes a fetch failure for the caller.
type ErrorKind int

const (
	// KindNotFound - the identifier does not resolve to a visible repository.
	KindNotFound ErrorKind = iota
	// KindUnauthorized - the credential is missing or invalid for the resource.
	KindUnauthorized
	// KindRateLimited - the API signaled quota exhaustion.
	KindRateLimited
	// KindTransient - connection/timeout failures and 5xx responses, eligible for retry.
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// FetchError is a categorized failure of one sub-resource fetch. It records
// the repository and resource it was issued for, how many attempts were made,
// and the retry-after hint when the API provided one.
type FetchError struct {
	Kind       ErrorKind
	ID         domain.Identifier
	Resource   string
	Attempts   int
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s for %s: %s", e.Resource, e.ID, e.Kind)
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches two FetchErrors by kind, so callers can use errors.Is with a
// bare &FetchError{Kind: ...} probe.
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// retryable reports whether the local retry policy applies to this error.
func (e *FetchError) retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTransient
}

// IsNotFound reports whether err is a not-found fetch failure.
func IsNotFound(err error) bool {
	return errors.Is(err, &FetchError{Kind: KindNotFound})
}

// IsUnauthorized reports whether err is an authorization fetch failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, &FetchError{Kind: KindUnauthorized})
}

// IsTransient reports whether err is a transient fetch failure, including
// retries that were exhausted.
func IsTransient(err error) bool {
	return errors.Is(err, &FetchError{Kind: KindTransient})
}
