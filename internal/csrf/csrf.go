// Package csrf implements stateless anti-forgery tokens bound to a request
// fingerprint (client IP, country, user agent). A token is the issue
// timestamp plus a keyed hash over the fingerprint and the issuing time
// window; verification recomputes the hash and compares in constant time.
// Nothing is stored server-side, so tokens work across any number of
// stateless instances.
package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"
)

// Service generates and verifies fingerprint-bound tokens. An empty secret
// disables the service entirely: a deployment without a configured secret
// gets availability over strictness, by explicit policy.
type Service struct {
	secret []byte
	window time.Duration
}

// New creates a token service. The window bounds how long a token stays
// valid after issuance.
func New(secret string, window time.Duration) *Service {
	if window <= 0 {
		window = time.Hour
	}
	return &Service{secret: []byte(secret), window: window}
}

// Enabled reports whether a secret is configured. When false, callers must
// treat CSRF protection as deliberately disabled, not as a failure.
func (s *Service) Enabled() bool {
	return len(s.secret) > 0
}

// Generate issues a token for the given fingerprint:
// hex(issue-timestamp) "." hex(HMAC-SHA256(secret, ip|country|ua|window)).
func (s *Service) Generate(ip, country, userAgent string) string {
	return s.generateAt(time.Now(), ip, country, userAgent)
}

// generateAt is split out so tests can issue tokens from the past.
func (s *Service) generateAt(issued time.Time, ip, country, userAgent string) string {
	ts := issued.Unix()
	var tsBytes [8]byte
	binary.BigEndian.PutUint64(tsBytes[:], uint64(ts))

	mac := s.fingerprintMAC(ts, ip, country, userAgent)
	return hex.EncodeToString(tsBytes[:]) + "." + hex.EncodeToString(mac)
}

// Verify checks a token against the current fingerprint. It rejects tokens
// issued outside the allowed window (including tokens from the future) and
// tokens whose keyed hash does not match a recomputation from the identical
// fingerprint tuple.
func (s *Service) Verify(token, ip, country, userAgent string) bool {
	if !s.Enabled() {
		return false
	}

	tsPart, macPart, found := strings.Cut(token, ".")
	if !found {
		return false
	}

	tsBytes, err := hex.DecodeString(tsPart)
	if err != nil || len(tsBytes) != 8 {
		return false
	}
	ts := int64(binary.BigEndian.Uint64(tsBytes))

	now := time.Now()
	issued := time.Unix(ts, 0)
	if issued.After(now.Add(time.Minute)) {
		return false // clock skew allowance, nothing more
	}
	if now.Sub(issued) > s.window {
		return false
	}

	submittedMAC, err := hex.DecodeString(macPart)
	if err != nil {
		return false
	}

	expected := s.fingerprintMAC(ts, ip, country, userAgent)
	return subtle.ConstantTimeCompare(submittedMAC, expected) == 1
}

// fingerprintMAC computes the keyed hash over the fingerprint tuple and
// the time window the timestamp falls in. Binding the window index rather
// than the raw timestamp keeps the MAC stable for the token's lifetime
// while still expiring with it.
func (s *Service) fingerprintMAC(ts int64, ip, country, userAgent string) []byte {
	windowIndex := ts / int64(s.window/time.Second)

	h := hmac.New(sha256.New, s.secret)
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(windowIndex))
	h.Write([]byte(ip))
	h.Write([]byte{0})
	h.Write([]byte(country))
	h.Write([]byte{0})
	h.Write([]byte(userAgent))
	h.Write([]byte{0})
	h.Write(idx[:])
	return h.Sum(nil)
}
