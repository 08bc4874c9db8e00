package apperrors

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// Kind classifies failures of the file-management core.
type Kind int

const (
	KindUnknown Kind = iota
	// KindProjectLoad means the project root is missing, not a directory or unreadable.
	KindProjectLoad
	// KindFileOperation covers write, backup and restore failures.
	KindFileOperation
	// KindGeneration means the generation collaborator failed.
	KindGeneration
	// KindAnalysis is a per-file stat failure. Always non-fatal.
	KindAnalysis
)

func (k Kind) String() string {
	switch k {
	case KindProjectLoad:
		return "ProjectLoadError"
	case KindFileOperation:
		return "FileOperationError"
	case KindGeneration:
		return "GenerationError"
	case KindAnalysis:
		return "AnalysisError"
	default:
		return "UnknownError"
	}
}

// Error carries the failure kind together with the operation, the path it
// concerned and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Op)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same kind with no
// further fields set, so errors.Is(err, apperrors.ErrGeneration) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Path == "" && t.Err == nil
}

// Sentinels usable with errors.Is.
var (
	ErrProjectLoad   = &Error{Kind: KindProjectLoad}
	ErrFileOperation = &Error{Kind: KindFileOperation}
	ErrGeneration    = &Error{Kind: KindGeneration}
	ErrAnalysis      = &Error{Kind: KindAnalysis}
)

func newError(kind Kind, op, path string, cause error) *Error {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: cause}
}

// ProjectLoad builds a KindProjectLoad error.
func ProjectLoad(op, path string, cause error) *Error {
	return newError(KindProjectLoad, op, path, cause)
}

// FileOperation builds a KindFileOperation error.
func FileOperation(op, path string, cause error) *Error {
	return newError(KindFileOperation, op, path, cause)
}

// Generation builds a KindGeneration error.
func Generation(op string, cause error) *Error {
	return newError(KindGeneration, op, "", cause)
}

// Analysis builds a KindAnalysis error.
func Analysis(op, path string, cause error) *Error {
	return newError(KindAnalysis, op, path, cause)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
