package embed

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a resolution failure.
type Kind string

const (
	FetchFailure         Kind = "FetchFailure"
	Timeout              Kind = "Timeout"
	NoPatternMatch       Kind = "NoPatternMatch"
	UnsupportedHost      Kind = "UnsupportedHost"
	AllCandidatesExpired Kind = "AllCandidatesExpired"
	ProxyUpstreamFailure Kind = "ProxyUpstreamFailure"
)

// Error is a failure carrying its taxonomy kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error of the given kind. A %w verb in format is preserved for unwrapping.
func Errorf(kind Kind, format string, args ...any) *Error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Msg: wrapped.Error(), Err: errors.Unwrap(wrapped)}
}

// Wrap attaches kind to err unless err already carries one.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the taxonomy kind of err.
// Deadline errors map to Timeout; anything unclassified is a FetchFailure.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return FetchFailure
}

// Sentinel messages reported to clients.
// ErrAborted marks units cut short because the caller went away, not because their deadline passed.
var (
	ErrUnsupportedHost = &Error{Kind: UnsupportedHost, Msg: "unsupported host"}
	ErrNoPatternMatch  = &Error{Kind: NoPatternMatch, Msg: "no media url found"}
	ErrAllExpired      = &Error{Kind: AllCandidatesExpired, Msg: "every candidate url has expired"}
	ErrTimeout         = &Error{Kind: Timeout, Msg: "resolution timed out"}
	ErrInvalidURL      = &Error{Kind: FetchFailure, Msg: "invalid embed url"}
	ErrAborted         = &Error{Kind: FetchFailure, Msg: "resolution aborted"}
)
