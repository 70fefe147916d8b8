package publish

import (
	"errors"
	"fmt"
)

// Kind classifies a publish failure so callers can decide machine-side what
// to do with it without parsing the human-readable detail.
type Kind string

const (
	// KindAuth means credentials were missing, expired, or incomplete. Never
	// retried automatically; the operator must re-run login.
	KindAuth Kind = "auth_error"
	// KindSession means the browser session could not be created or a
	// navigation failed. Fatal for the job.
	KindSession Kind = "session_error"
	// KindLocator means no candidate selector matched for a logical target.
	// Carries the target name so selector lists can be repaired.
	KindLocator Kind = "locator_error"
	// KindUpload means the platform surfaced an explicit upload failure.
	KindUpload Kind = "upload_error"
	// KindContentValidation means the draft violated a platform limit before
	// any browser work happened.
	KindContentValidation Kind = "content_validation_error"
	// KindAnnotation marks per-topic tagging failures. Recorded, never fatal.
	KindAnnotation Kind = "annotation_failure"
	// KindTimeout means a polling ceiling elapsed. Distinguished so callers
	// can choose to retry the whole job later.
	KindTimeout Kind = "timeout_error"
)

// remediation hints surfaced alongside each kind.
var hints = map[Kind]string{
	KindAuth:              "re-run the login flow to capture fresh credentials",
	KindSession:           "check that the browser can start and the network is reachable",
	KindLocator:           "the platform UI likely changed; update the selector list for this target",
	KindUpload:            "verify the media files are valid and within platform limits",
	KindContentValidation: "adjust the draft to fit platform limits and re-submit",
	KindAnnotation:        "topic tagging is best-effort; re-add failed topics manually if needed",
	KindTimeout:           "the platform was slow; re-submitting the job may succeed",
}

// Error is a classified publish failure.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind, so tests and callers can write
// errors.Is(err, &Error{Kind: KindAuth}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// ErrorType returns the machine-checkable kind string.
func (e *Error) ErrorType() string {
	return string(e.Kind)
}

// Hint returns the suggested remediation for this kind of failure.
func (e *Error) Hint() string {
	return hints[e.Kind]
}

// NewError builds a classified error. detail is formatted with args.
func NewError(kind Kind, detail string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(detail, args...)}
}

// WrapError classifies an underlying error.
func WrapError(kind Kind, err error, detail string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(detail, args...), Err: err}
}

// KindOf extracts the kind from a classified error chain, or "" if the
// error carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
