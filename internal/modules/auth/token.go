package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// TokenMaxAge bounds how long confirmation and reset links stay valid.
const TokenMaxAge = time.Hour

// Signer issues and verifies HMAC-signed, time-limited tokens carried in
// email links.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a signer keyed with the application secret.
func NewSigner(secret string) *Signer {
	return &Signer{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Sign produces a URL-safe token binding the payload to the current time.
func (s *Signer) Sign(payload string) string {
	issued := strconv.FormatInt(s.now().Unix(), 10)
	mac := s.mac(payload + "|" + issued)
	raw := payload + "|" + issued + "|" + mac
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Verify checks the signature and age of a token and returns its payload.
func (s *Signer) Verify(token string, maxAge time.Duration) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrTokenInvalid
	}

	// The payload may itself contain separators, so split off the trailing
	// mac and timestamp fields only.
	decoded := string(raw)
	macIdx := strings.LastIndex(decoded, "|")
	if macIdx < 0 {
		return "", ErrTokenInvalid
	}
	signed, gotMAC := decoded[:macIdx], decoded[macIdx+1:]

	issuedIdx := strings.LastIndex(signed, "|")
	if issuedIdx <= 0 {
		return "", ErrTokenInvalid
	}
	payload, issuedStr := signed[:issuedIdx], signed[issuedIdx+1:]

	wantMAC := s.mac(signed)
	if !hmac.Equal([]byte(wantMAC), []byte(gotMAC)) {
		return "", ErrTokenInvalid
	}

	issued, err := strconv.ParseInt(issuedStr, 10, 64)
	if err != nil {
		return "", ErrTokenInvalid
	}
	if s.now().Sub(time.Unix(issued, 0)) > maxAge {
		return "", ErrTokenExpired
	}

	return payload, nil
}

func (s *Signer) mac(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// Token payloads carry a purpose prefix so a confirmation token cannot be
// replayed against the password reset endpoint.

func confirmPayload(email string) string { return "confirm|" + email }
func resetPayload(email string) string   { return "reset|" + email }

func splitPayload(payload string) (purpose, email string, err error) {
	idx := strings.Index(payload, "|")
	if idx <= 0 || idx == len(payload)-1 {
		return "", "", ErrTokenInvalid
	}
	return payload[:idx], payload[idx+1:], nil
}
