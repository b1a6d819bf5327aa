package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound marks a repository, commit or file that is absent from its source.
// Units failing with it resolve as Missing / OriginNotFound instead of failing the batch.
var ErrNotFound = errors.New("not found")

// FormatError represents a malformed repository identifier or corpus record.
type FormatError struct {
	Input  string
	Reason string
}

// Error implements the error interface
func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed input %q: %s", e.Input, e.Reason)
}

// NewFormatError creates a new FormatError
func NewFormatError(input, reason string) *FormatError {
	return &FormatError{Input: input, Reason: reason}
}

// CorpusError is fatal: the vulnerability-record corpus could not be read or parsed.
type CorpusError struct {
	Source string
	Err    error
}

func (e *CorpusError) Error() string {
	return fmt.Sprintf("corpus %s unavailable: %v", e.Source, e.Err)
}

func (e *CorpusError) Unwrap() error {
	return e.Err
}

// NewCorpusError creates a new CorpusError
func NewCorpusError(source string, err error) *CorpusError {
	return &CorpusError{Source: source, Err: err}
}

// ProvenanceTimeoutError reports a blame query that exceeded its time budget.
type ProvenanceTimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *ProvenanceTimeoutError) Error() string {
	return fmt.Sprintf("blame of %s exceeded %v", e.Path, e.Timeout)
}

// Is lets callers match a timeout with errors.Is(err, context.DeadlineExceeded).
func (e *ProvenanceTimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// NewProvenanceTimeoutError creates a new ProvenanceTimeoutError
func NewProvenanceTimeoutError(path string, timeout time.Duration) *ProvenanceTimeoutError {
	return &ProvenanceTimeoutError{Path: path, Timeout: timeout}
}

// Kind is the routing class of an error.
type Kind string

const (
	KindNone     Kind = ""
	KindFormat   Kind = "format"
	KindCorpus   Kind = "corpus"
	KindTimeout  Kind = "timeout"
	KindNotFound Kind = "not_found"
	KindOther    Kind = "other"
)

// KindOf classifies err for routing and metrics labels.
func KindOf(err error) Kind {
	var formatErr *FormatError
	var corpusErr *CorpusError
	var timeoutErr *ProvenanceTimeoutError

	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &corpusErr):
		return KindCorpus
	case errors.As(err, &formatErr):
		return KindFormat
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindOther
	}
}

// IsFatal reports whether err must abort the run at startup.
func IsFatal(err error) bool {
	return KindOf(err) == KindCorpus
}
