package channels

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// DefaultMaxBodyBytes bounds how much of a request body is captured.
const DefaultMaxBodyBytes int64 = 1 << 20

type rawBodyKey struct{}

type captureErrKey struct{}

// RawBody is the exact request payload as received on the wire, or its
// absence when no capture ran for the request.
type RawBody struct {
	data    []byte
	present bool
}

// CapturedBody wraps bytes read from the wire. A nil slice is still a
// captured (empty) body.
func CapturedBody(b []byte) RawBody {
	if b == nil {
		b = []byte{}
	}
	return RawBody{data: b, present: true}
}

// MissingBody is the absent variant.
func MissingBody() RawBody {
	return RawBody{}
}

// Bytes returns the captured payload and whether one was captured.
func (b RawBody) Bytes() ([]byte, bool) {
	return b.data, b.present
}

// WithRawBody stores captured bytes in the context.
func WithRawBody(ctx context.Context, b []byte) context.Context {
	return context.WithValue(ctx, rawBodyKey{}, CapturedBody(b))
}

// RawBodyFromContext returns the captured body, or MissingBody when the
// capture middleware never ran for this request.
func RawBodyFromContext(ctx context.Context) RawBody {
	if b, ok := ctx.Value(rawBodyKey{}).(RawBody); ok {
		return b
	}
	return MissingBody()
}

// CaptureErrorFromContext returns why CaptureRawBody could not capture the
// body, or nil when capture succeeded or never ran.
func CaptureErrorFromContext(ctx context.Context) error {
	err, _ := ctx.Value(captureErrKey{}).(error)
	return err
}

// IsBodyTooLarge reports whether err came from exceeding the capture limit.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// CaptureRawBody returns middleware that keeps the untransformed request
// bytes in the request context and hands downstream handlers an identical
// body reader. It never rejects a request: a failed read leaves the body
// uncaptured and verification fails closed later.
func CaptureRawBody(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				r = r.WithContext(WithRawBody(r.Context(), nil))
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
			_ = r.Body.Close()
			if err != nil {
				slog.WarnContext(r.Context(), "raw body capture failed", "error", err, "path", r.URL.Path)
				r = r.WithContext(context.WithValue(r.Context(), captureErrKey{}, err))
				r.Body = http.NoBody
				next.ServeHTTP(w, r)
				return
			}

			r = r.WithContext(WithRawBody(r.Context(), body))
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
