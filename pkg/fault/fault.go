// Package fault classifies errors crossing the pipeline's component
// boundaries into a small fixed taxonomy. Engines use the Kind of an error
// to decide whether to report, skip, or escalate; the kind also travels in
// error notifications to downstream observers.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of an [Error].
type Kind string

const (
	// Transport covers unreachable hosts, timeouts, and 5xx responses from
	// external APIs.
	Transport Kind = "transport"

	// Auth covers rejected credentials. Fatal to the call, not the stream.
	Auth Kind = "auth"

	// Parse covers malformed JSON or missing required fields in an LLM
	// response.
	Parse Kind = "parse"

	// Policy covers well-formed responses that violate a contract, such as
	// a verdict outside the enumerated set.
	Policy Kind = "policy"

	// Invariant covers internal bugs, such as switching to a topic id that
	// does not exist. Never swallowed.
	Invariant Kind = "invariant"
)

// Error is a classified error. It wraps an underlying cause and names the
// operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause for use with [errors.Is] and
// [errors.As].
func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error with a message built from format and args.
func New(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. A nil err returns nil. If err already
// carries a kind, the original classification is preserved and only the
// operation chain grows.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return &Error{Kind: fe.Kind, Op: op, Err: err}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of err. ok is false when err carries no
// classification.
func KindOf(err error) (kind Kind, ok bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// IsKind reports whether err is classified with kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
