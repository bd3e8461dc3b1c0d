package bonsai

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind rather than matching error strings; Error()
// text is human-readable and may evolve. Server response bodies are carried
// verbatim in Body.
type Kind string

const (
	// KindEndpoint reports malformed endpoint configuration.
	KindEndpoint Kind = "Endpoint"
	// KindUploadLocation reports failure to obtain a presigned upload
	// location.
	KindUploadLocation Kind = "UploadLocation"
	// KindUpload reports a rejected or failed presigned PUT.
	KindUpload Kind = "Upload"
	// KindSessionCreate reports rejected session creation.
	KindSessionCreate Kind = "SessionCreate"
	// KindStatus reports a failed status poll (transport or decode).
	KindStatus Kind = "Status"
	// KindProtocol reports a service reply that violates the session
	// protocol, such as a succeeded session without a receipt URL.
	KindProtocol Kind = "Protocol"
	// KindJobFailed reports a session that reached a terminal status other
	// than SUCCEEDED. The verbatim status is in Error.Status.
	KindJobFailed Kind = "JobFailed"
	// KindDownload reports a failed receipt download.
	KindDownload Kind = "Download"
)

// Error is the client's structured error type.
type Error struct {
	Kind Kind
	// Op names the protocol operation that failed.
	Op string
	// Status is the verbatim terminal session status for KindJobFailed.
	Status string
	// Body is the verbatim server response body, when one was read.
	Body    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// SessionStatus returns the verbatim terminal status carried by a
// KindJobFailed error, or "" if err is not one.
func SessionStatus(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Status
}
