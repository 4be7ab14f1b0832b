package model

import (
	"errors"
	"fmt"
)

// ErrorCode classifies dispatch failures so callers can decide whether to
// keep the current target, retry, or demand a re-pick.
type ErrorCode string

const (
	// CodeNotFound: the resolver found no window at the point. The
	// operator must re-pick; never retried automatically.
	CodeNotFound ErrorCode = "not_found"
	// CodeTargetLost: a previously resolved handle is no longer alive.
	// The SendTarget must be discarded and re-picked.
	CodeTargetLost ErrorCode = "target_lost"
	// CodeFocusFailed: the window is alive but would not accept focus
	// within the retry budget. Recoverable; the target is kept.
	CodeFocusFailed ErrorCode = "focus_failed"
	// CodeSendFailed: a strategy's underlying OS or serial call failed
	// after exhausting the profile's fallbacks.
	CodeSendFailed ErrorCode = "send_failed"
)

// DispatchError carries a classification code alongside the underlying
// cause. Use the constructors below rather than building one by hand.
type DispatchError struct {
	Code ErrorCode
	Op   string // short operation description, e.g. "resolve", "focus"
	Err  error  // wrapped cause, may be nil
}

// Error renders the cause without the code prefix; callers that surface
// results pair Code and message separately, so prefixing here would stutter.
func (e *DispatchError) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op
	default:
		return string(e.Code)
	}
}

func (e *DispatchError) Unwrap() error { return e.Err }

// NotFound builds a not_found error. op describes what was being looked
// up; err is the underlying cause and may be nil when op says it all.
func NotFound(op string, err error) error {
	return &DispatchError{Code: CodeNotFound, Op: op, Err: err}
}

// TargetLost builds a target_lost error around the given cause.
func TargetLost(err error) error {
	return &DispatchError{Code: CodeTargetLost, Err: err}
}

// FocusFailed builds a focus_failed error around the given cause.
func FocusFailed(err error) error {
	return &DispatchError{Code: CodeFocusFailed, Err: err}
}

// SendFailed builds a send_failed error around the given cause.
func SendFailed(err error) error {
	return &DispatchError{Code: CodeSendFailed, Err: err}
}

// CodeOf extracts the classification code from anywhere in the error
// chain, or "" for unclassified errors.
func CodeOf(err error) ErrorCode {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// FatalToTarget reports whether the error invalidates the current target:
// the window is gone and the operator must re-pick. Focus and send
// failures are recoverable and keep the target.
func FatalToTarget(err error) bool {
	return CodeOf(err) == CodeTargetLost
}
