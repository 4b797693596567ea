package credential

import (
	"strings"
	"testing"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("expected PHC argon2id format, got %s", hash)
	}
	if !VerifyPassword("correct horse battery 1", hash) {
		t.Error("expected correct password to verify")
	}
	if VerifyPassword("wrong password 1", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("samepassword1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := HashPassword("samepassword1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 == h2 {
		t.Error("expected distinct hashes for the same password (fresh salt per call)")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	malformed := []string{
		"",
		"not a hash",
		"$argon2id$v=19$m=65536,t=3,p=4$onlyonepart",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
	}
	for _, hash := range malformed {
		if VerifyPassword("whatever1", hash) {
			t.Errorf("expected malformed hash %q to fail verification", hash)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"alice@example.com", true},
		{"a.b+tag@sub.example.org", true},
		{"", false},
		{"no-at-sign", false},
		{"two@@example.com", false},
		{"spaces in@example.com", false},
		{"nodomain@", false},
		{"notld@example", false},
	}

	for _, tt := range tests {
		v := ValidateEmail(tt.email)
		if tt.valid && v != nil {
			t.Errorf("ValidateEmail(%q): unexpected violation %q", tt.email, v.Reason)
		}
		if !tt.valid && v == nil {
			t.Errorf("ValidateEmail(%q): expected violation, got none", tt.email)
		}
		if !tt.valid && v != nil && v.Field != "email" {
			t.Errorf("ValidateEmail(%q): expected field email, got %s", tt.email, v.Field)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"abc", true},
		{"alice_w", true},
		{"A1_b2_c3", true},
		{strings.Repeat("x", 20), true},
		{"", false},
		{"ab", false},
		{strings.Repeat("x", 21), false},
		{"has space", false},
		{"has-dash", false},
		{"émile", false},
	}

	for _, tt := range tests {
		v := ValidateUsername(tt.username)
		if tt.valid && v != nil {
			t.Errorf("ValidateUsername(%q): unexpected violation %q", tt.username, v.Reason)
		}
		if !tt.valid && v == nil {
			t.Errorf("ValidateUsername(%q): expected violation, got none", tt.username)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"abcdef12", true},
		{"LongerPassw0rd", true},
		{"", false},
		{"short1", false},
		{"12345678", false},        // digits only
		{"justletters", false},     // no digit
		{strings.Repeat("a1", 65), false}, // over max length
	}

	for _, tt := range tests {
		v := ValidatePassword(tt.password)
		if tt.valid && v != nil {
			t.Errorf("ValidatePassword(%q): unexpected violation %q", tt.password, v.Reason)
		}
		if !tt.valid && v == nil {
			t.Errorf("ValidatePassword(%q): expected violation, got none", tt.password)
		}
	}
}
