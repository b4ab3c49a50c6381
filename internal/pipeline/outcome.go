// internal/pipeline/outcome.go
//
// Formgate – Submission pipeline: terminal outcomes.
//
// Context
//   Every pipeline run ends in exactly one Outcome: a success payload or a
//   typed failure.  Outcomes are plain values handed back to the caller,
//   never panics, and the pipeline never retries on its own.  The four
//   failure kinds are distinguishable so the caller can decide what is
//   recoverable: user correction, retry, or neither.
//
//------------------------------------------------------------------------------

package pipeline

import "encoding/json"

// ErrorKind classifies a failed pipeline run.
type ErrorKind int

const (
	// KindValidationFailed means one or more field rules were violated.
	// Recoverable by the user correcting input.
	KindValidationFailed ErrorKind = iota + 1

	// KindTransport means the network exchange itself failed (timeout,
	// refused connection, broken response).  Retry is an external concern.
	KindTransport

	// KindServerRejected means the upstream answered with a non-success
	// status and a reason of its own.
	KindServerRejected

	// KindCancelled means the caller aborted the run while the network
	// exchange was in flight.
	KindCancelled
)

// String returns the snake_case name used in responses, logs, and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindValidationFailed:
		return "validation_failed"
	case KindTransport:
		return "transport_error"
	case KindServerRejected:
		return "server_rejected"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the terminal value of one pipeline run: Success(payload) or
// Failure(kind, detail).  The zero Outcome is invalid; use the constructors.
type Outcome struct {
	ok          bool
	payload     json.RawMessage
	kind        ErrorKind
	detail      string
	fieldErrors []ValidationError
}

// Success wraps the upstream response payload.
func Success(payload json.RawMessage) Outcome {
	return Outcome{ok: true, payload: payload}
}

// Failure wraps a typed failure with a human-readable detail.
func Failure(kind ErrorKind, detail string) Outcome {
	return Outcome{kind: kind, detail: detail}
}

// Invalid wraps the accumulated validation errors of a rejected draft.
func Invalid(errs []ValidationError) Outcome {
	return Outcome{kind: KindValidationFailed, detail: "validation failed", fieldErrors: errs}
}

// OK reports whether the run succeeded.
func (o Outcome) OK() bool { return o.ok }

// Payload returns the success payload.  Nil on failure.
func (o Outcome) Payload() json.RawMessage { return o.payload }

// Kind returns the failure classification.  Zero when the run succeeded.
func (o Outcome) Kind() ErrorKind { return o.kind }

// Detail returns the failure detail string.
func (o Outcome) Detail() string { return o.detail }

// FieldErrors returns the per-field violations of a KindValidationFailed
// outcome, in reporting order.  Nil for every other kind.
func (o Outcome) FieldErrors() []ValidationError { return o.fieldErrors }
