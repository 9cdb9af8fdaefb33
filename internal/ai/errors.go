// Package ai implements the AI response orchestration pipeline: config
// resolution, context assembly, provider calls with rate limiting and
// fallback, and answer post-processing.
package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures. Expected conditions travel as
// typed results, never as panics; the caller decides what degrades and
// what stops the turn.
type ErrorKind string

const (
	// KindNotConfigured means no usable AI configuration exists. Terminal.
	KindNotConfigured ErrorKind = "not_configured"
	// KindAutoRespondDisabled is an explicit operator choice. Terminal,
	// silent to the customer.
	KindAutoRespondDisabled ErrorKind = "auto_respond_disabled"
	// KindPersonalityNotFound is a bad personality reference. Non-fatal:
	// resolution falls back to the company default and logs a warning.
	KindPersonalityNotFound ErrorKind = "personality_not_found"
	// KindRateLimited means quota is exhausted on every candidate model.
	KindRateLimited ErrorKind = "rate_limited"
	// KindProviderError is a network or vendor fault, terminal for the
	// turn once the fallback provider has also been tried.
	KindProviderError ErrorKind = "provider_error"
	// KindRetrievalFailure is never fatal; it degrades context quality.
	KindRetrievalFailure ErrorKind = "retrieval_failure"
	// KindTransportError is a platform send fault; logged, non-blocking.
	KindTransportError ErrorKind = "transport_error"
)

// Usage is the quota snapshot attached to rate-limit errors.
type Usage struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Used     int64  `json:"used"`
	Limit    int    `json:"limit"`
}

// Error is the structured pipeline error.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Usage *Usage
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a pipeline error of the given kind.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError creates a pipeline error wrapping an underlying cause.
func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err is a pipeline error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Answer is the normalized result of one AI turn.
type Answer struct {
	Text         string   `json:"text"`
	Confidence   float64  `json:"confidence,omitempty"`
	ImagesToSend []string `json:"images_to_send,omitempty"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	TokensIn     int      `json:"tokens_in,omitempty"`
	TokensOut    int      `json:"tokens_out,omitempty"`
	Cached       bool     `json:"cached,omitempty"`
}
