// Package credential provides password hashing and input format validation
// for the identity core. Hashing uses argon2id with per-hash random salts;
// all parameters travel inside the PHC-encoded hash string so they can be
// tuned without invalidating existing credentials.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters tuned for a self-hosted application running on
// modest hardware (2-4 CPU cores, 2-4 GB RAM). These follow OWASP
// recommendations for argon2id: memory=64MB, iterations=3, parallelism=4.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB in KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// HashPassword creates an argon2id hash of the given password. The output
// format is: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
// This format is compatible with most argon2 libraries and allows self-
// contained verification without separate salt storage.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, b64Salt, b64Hash)

	return encoded, nil
}

// VerifyPassword checks a plaintext password against an argon2id hash
// string. Verification re-derives with the parameters stored in the hash,
// so old credentials keep working after parameter changes. Returns true if
// the password matches.
func VerifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Constant-time comparison to prevent timing attacks.
	return subtle.ConstantTimeCompare(expectedHash, computedHash) == 1
}

// --- Format validation ---

// Violation describes why an input value failed validation. Returning a
// structured reason instead of a bool lets callers produce specific,
// field-level error messages.
type Violation struct {
	// Field is the input field name ("email", "username", "password").
	Field string

	// Reason is a human-readable description of the failure.
	Reason string
}

// usernameRe matches 3-20 characters of letters, digits, and underscores.
var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// emailRe is a pragmatic shape check, not an RFC 5322 parser. Anything that
// passes still has to survive the confirmation flow to be trusted.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail checks the shape of an email address. Returns nil when valid.
func ValidateEmail(email string) *Violation {
	if email == "" {
		return &Violation{Field: "email", Reason: "email is required"}
	}
	if len(email) > 254 {
		return &Violation{Field: "email", Reason: "email must be at most 254 characters"}
	}
	if !emailRe.MatchString(email) {
		return &Violation{Field: "email", Reason: "email is not a valid address"}
	}
	return nil
}

// ValidateUsername checks that a username is 3-20 characters of letters,
// digits, and underscores. Returns nil when valid.
func ValidateUsername(username string) *Violation {
	if username == "" {
		return &Violation{Field: "username", Reason: "username is required"}
	}
	if len(username) < 3 {
		return &Violation{Field: "username", Reason: "username must be at least 3 characters"}
	}
	if len(username) > 20 {
		return &Violation{Field: "username", Reason: "username must be at most 20 characters"}
	}
	if !usernameRe.MatchString(username) {
		return &Violation{Field: "username", Reason: "username may only contain letters, digits, and underscores"}
	}
	return nil
}

// ValidatePassword checks the password policy: at least 8 characters with
// at least one letter and one digit. Returns nil when valid.
func ValidatePassword(password string) *Violation {
	if password == "" {
		return &Violation{Field: "password", Reason: "password is required"}
	}
	if len(password) < 8 {
		return &Violation{Field: "password", Reason: "password must be at least 8 characters"}
	}
	if len(password) > 128 {
		return &Violation{Field: "password", Reason: "password must be at most 128 characters"}
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLetter {
		return &Violation{Field: "password", Reason: "password must contain at least one letter"}
	}
	if !hasDigit {
		return &Violation{Field: "password", Reason: "password must contain at least one digit"}
	}
	return nil
}
