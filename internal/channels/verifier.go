package channels

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// Verifier validates incoming webhook authenticity for a provider.
type Verifier interface {
	Verify(headers http.Header, body RawBody, now time.Time) error
}

var (
	ErrSigningSecretRequired = errors.New("signing secret is required to verify slack requests")
	ErrMissingHeaders        = errors.New("timestamp and signature headers are required")
	ErrInvalidTimestamp      = errors.New("invalid request timestamp")
	ErrTimestampExpired      = errors.New("request timestamp outside allowed age")
	ErrBodyNotCaptured       = errors.New("raw request body was not captured")
	ErrInvalidSignature      = errors.New("invalid signature")
	ErrUnsupportedVersion    = errors.New("unsupported signature version")
)

// Outcome is the classified result of a single verification.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeMalformed Outcome = "malformed"
	OutcomeStale     Outcome = "stale"
	OutcomeTypeError Outcome = "type_error"
	OutcomeMismatch  Outcome = "mismatch"
)

// ClassifyError maps a verification error to its outcome. Unknown errors
// classify as mismatch so callers always fail closed.
func ClassifyError(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, ErrMissingHeaders), errors.Is(err, ErrInvalidTimestamp):
		return OutcomeMalformed
	case errors.Is(err, ErrTimestampExpired):
		return OutcomeStale
	case errors.Is(err, ErrBodyNotCaptured):
		return OutcomeTypeError
	default:
		return OutcomeMismatch
	}
}

// Status returns the HTTP status a rejection with this outcome carries.
func (o Outcome) Status() int {
	switch o {
	case OutcomeAccepted:
		return http.StatusOK
	case OutcomeTypeError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Reason returns the short human-readable rejection reason.
func (o Outcome) Reason() string {
	switch o {
	case OutcomeAccepted:
		return "ok"
	case OutcomeMalformed:
		return "Not containing X-Slack headers"
	case OutcomeStale:
		return "Outdated Slack request"
	case OutcomeTypeError:
		return "Raw request body was not captured"
	default:
		return "X-Slack-Signature verification failed"
	}
}

// VerificationError is a classified rejection handed to the gate's error
// handler. Timestamp, Signature and Now are diagnostic only.
type VerificationError struct {
	Outcome   Outcome
	Status    int
	Reason    string
	Timestamp string
	Signature string
	Now       time.Time
	Err       error
}

// NewVerificationError classifies err and captures the header values that
// were presented with the request.
func NewVerificationError(err error, headers http.Header, now time.Time) *VerificationError {
	outcome := ClassifyError(err)
	return &VerificationError{
		Outcome:   outcome,
		Status:    outcome.Status(),
		Reason:    reasonFor(err, outcome),
		Timestamp: headers.Get(slackTimestampHeader),
		Signature: headers.Get(slackSignatureHeader),
		Now:       now,
		Err:       err,
	}
}

// reasonFor refines the outcome's reason where the outcome alone would
// misdescribe the failure.
func reasonFor(err error, outcome Outcome) string {
	if errors.Is(err, ErrInvalidTimestamp) {
		return "Invalid X-Slack-Request-Timestamp"
	}
	return outcome.Reason()
}

func (e *VerificationError) Error() string {
	msg := strconv.Itoa(e.Status) + " " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}
