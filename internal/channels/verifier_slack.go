package channels

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	slackSignatureHeader = "X-Slack-Signature"
	slackTimestampHeader = "X-Slack-Request-Timestamp"

	// DefaultSignatureVersion is the protocol version tag Slack prefixes to
	// both the canonical message and the signature header.
	DefaultSignatureVersion = "v1"
	// DefaultMaxAge is the freshness window for request timestamps.
	DefaultMaxAge = 5 * time.Minute
)

// SlackVerifier verifies Slack webhook signatures.
type SlackVerifier struct {
	signingSecret []byte
	maxAge        time.Duration
	version       string
}

// SlackOption configures a SlackVerifier.
type SlackOption func(*SlackVerifier)

// WithMaxAge overrides the freshness window. The window has whole-second
// precision: d is truncated to seconds and values under one second are
// ignored.
func WithMaxAge(d time.Duration) SlackOption {
	return func(v *SlackVerifier) {
		if d >= time.Second {
			v.maxAge = d.Truncate(time.Second)
		}
	}
}

// WithSignatureVersion overrides the accepted signature version tag.
func WithSignatureVersion(version string) SlackOption {
	return func(v *SlackVerifier) {
		if version = strings.TrimSpace(version); version != "" {
			v.version = version
		}
	}
}

// NewSlackVerifier creates a Slack signature verifier. An empty signing
// secret is a configuration error.
func NewSlackVerifier(signingSecret string, opts ...SlackOption) (*SlackVerifier, error) {
	if signingSecret == "" {
		return nil, ErrSigningSecretRequired
	}
	v := &SlackVerifier{
		signingSecret: []byte(signingSecret),
		maxAge:        DefaultMaxAge,
		version:       DefaultSignatureVersion,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify validates the request timestamp and signature against the captured
// raw body. Checks run in order and stop at the first failure:
// headers -> freshness -> raw body -> digest.
func (v *SlackVerifier) Verify(headers http.Header, body RawBody, now time.Time) error {
	timestamp := headers.Get(slackTimestampHeader)
	signature := headers.Get(slackSignatureHeader)
	if timestamp == "" || signature == "" {
		return ErrMissingHeaders
	}

	ts, err := parseTimestamp(timestamp)
	if err != nil {
		return err
	}
	// Only the past is bounded; a sender clock slightly ahead is tolerated.
	if ts < now.Unix()-int64(v.maxAge/time.Second) {
		return ErrTimestampExpired
	}

	raw, ok := body.Bytes()
	if !ok {
		return ErrBodyNotCaptured
	}

	version, digest, _ := strings.Cut(signature, "=")
	if version != v.version {
		return fmt.Errorf("%w: %w %q", ErrInvalidSignature, ErrUnsupportedVersion, version)
	}

	expected, err := computeSignature(v.signingSecret, version, timestamp, raw)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(digest)) {
		return ErrInvalidSignature
	}
	return nil
}

// parseTimestamp reads epoch seconds from the timestamp header. A decimal
// fraction ("1730000000.593") is allowed and ignored; signs, spaces, other
// bases and out-of-range values are not. The header string itself is still
// what gets signed.
func parseTimestamp(timestamp string) (int64, error) {
	secs, frac, hasFrac := strings.Cut(timestamp, ".")
	if !isDigits(secs) || (hasFrac && !isDigits(frac)) {
		return 0, fmt.Errorf("%w: %q is not epoch seconds", ErrInvalidTimestamp, timestamp)
	}
	ts, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	return ts, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// computeSignature returns the lowercase hex HMAC-SHA256 of the canonical
// message "version:timestamp:body".
func computeSignature(secret []byte, version, timestamp string, body []byte) (string, error) {
	mac := hmac.New(sha256.New, secret)
	if _, err := mac.Write([]byte(version + ":" + timestamp + ":")); err != nil {
		return "", fmt.Errorf("writing slack signature base: %w", err)
	}
	if _, err := mac.Write(body); err != nil {
		return "", fmt.Errorf("writing slack signature body: %w", err)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}
