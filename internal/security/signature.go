package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

const (
	HeaderSignature = "X-Campaign-Signature"
	HeaderDate      = "X-Campaign-Date"
	HeaderNonce     = "X-Campaign-Nonce"
)

var ErrMissingSignature = errors.New("missing signature headers")

// SignedRequest is the canonical form of a request that clients sign with
// the per-device key.
type SignedRequest struct {
	DeviceID string
	Method   string
	Path     string
	Query    string
	Body     []byte
	Date     string
	Nonce    string
}

func bodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (r SignedRequest) canonical() string {
	return strings.Join([]string{
		r.DeviceID,
		strings.ToUpper(r.Method),
		r.Path,
		r.Query,
		bodyHash(r.Body),
		r.Date,
		r.Nonce,
	}, "\n")
}

func Sign(secret string, r SignedRequest) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(r.canonical()))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func Verify(secret string, r SignedRequest, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(Sign(secret, r)))
}

// SignatureHeaders pulls date, nonce and signature from h.
func SignatureHeaders(h http.Header) (date, nonce, signature string, err error) {
	date = h.Get(HeaderDate)
	nonce = h.Get(HeaderNonce)
	signature = h.Get(HeaderSignature)
	if date == "" || nonce == "" || signature == "" {
		return "", "", "", ErrMissingSignature
	}
	return date, nonce, signature, nil
}
