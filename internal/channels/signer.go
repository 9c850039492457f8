package channels

import (
	"net/http"
	"strconv"
	"time"
)

// Signer produces Slack-style request signatures. It is the counterpart of
// SlackVerifier and is used by tooling and tests to build signed requests.
type Signer struct {
	signingSecret []byte
	version       string
}

// NewSigner creates a signer. An empty version falls back to
// DefaultSignatureVersion.
func NewSigner(signingSecret, version string) (*Signer, error) {
	if signingSecret == "" {
		return nil, ErrSigningSecretRequired
	}
	if version == "" {
		version = DefaultSignatureVersion
	}
	return &Signer{signingSecret: []byte(signingSecret), version: version}, nil
}

// Sign returns the signature header value "version=hexdigest".
func (s *Signer) Sign(timestamp string, body []byte) (string, error) {
	digest, err := computeSignature(s.signingSecret, s.version, timestamp, body)
	if err != nil {
		return "", err
	}
	return s.version + "=" + digest, nil
}

// SignRequest sets the timestamp and signature headers on req for body.
func (s *Signer) SignRequest(req *http.Request, body []byte, now time.Time) error {
	timestamp := strconv.FormatInt(now.Unix(), 10)
	signature, err := s.Sign(timestamp, body)
	if err != nil {
		return err
	}
	req.Header.Set(slackTimestampHeader, timestamp)
	req.Header.Set(slackSignatureHeader, signature)
	return nil
}
