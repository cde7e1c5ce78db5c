package security

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokenCodecRoundTrip(t *testing.T) {
	codec, err := NewTokenCodec("test-secret", "mte-core")
	if err != nil {
		t.Fatalf("NewTokenCodec returned error: %v", err)
	}

	token, expiresAt, err := codec.Sign(7, "sato@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := codec.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.UserID != 7 {
		t.Fatalf("expected user id 7, got %d", claims.UserID)
	}
	if claims.Email != "sato@example.com" {
		t.Fatalf("expected email to round-trip, got %s", claims.Email)
	}
	if claims.ID == "" {
		t.Fatalf("expected a token id")
	}
}

func TestTokenCodecUniqueTokens(t *testing.T) {
	codec, _ := NewTokenCodec("test-secret", "mte-core")

	a, _, err := codec.Sign(1, "a@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	b, _, err := codec.Sign(1, "a@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct tokens for identical claims")
	}
}

func TestTokenCodecExpired(t *testing.T) {
	codec, _ := NewTokenCodec("test-secret", "mte-core")

	token, _, err := codec.Sign(7, "sato@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	if _, err := codec.Parse(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenCodecMalformed(t *testing.T) {
	codec, _ := NewTokenCodec("test-secret", "mte-core")

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9"},
	}
	for _, tc := range cases {
		if _, err := codec.Parse(tc.token); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("%s: expected ErrTokenMalformed, got %v", tc.name, err)
		}
	}
}

func TestTokenCodecRejectsForeignSecret(t *testing.T) {
	signer, _ := NewTokenCodec("secret-a", "mte-core")
	verifier, _ := NewTokenCodec("secret-b", "mte-core")

	token, _, err := signer.Sign(7, "sato@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	if _, err := verifier.Parse(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for foreign secret, got %v", err)
	}
}

func TestTokenCodecRejectsTampering(t *testing.T) {
	codec, _ := NewTokenCodec("test-secret", "mte-core")

	token, _, err := codec.Sign(7, "sato@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments")
	}
	sig := parts[2]
	last := "A"
	if strings.HasSuffix(sig, "A") {
		last = "B"
	}
	tampered := parts[0] + "." + parts[1] + "." + sig[:len(sig)-1] + last

	if _, err := codec.Parse(tampered); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for tampered signature, got %v", err)
	}
}

func TestNewTokenCodecRequiresSecret(t *testing.T) {
	if _, err := NewTokenCodec("", "mte-core"); err == nil {
		t.Fatalf("expected an error for empty secret")
	}
	if _, err := NewTokenCodec("   ", "mte-core"); err == nil {
		t.Fatalf("expected an error for blank secret")
	}
}

func TestGenerateNumericCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := GenerateNumericCode(6)
		if err != nil {
			t.Fatalf("GenerateNumericCode returned error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("expected digits only, got %q", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected some variation across generated codes")
	}
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	ok, err := VerifyPassword("s3cret-pass", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected the right password to verify")
	}

	ok, err = VerifyPassword("wrong", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected the wrong password to fail")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, stored := range []string{"not-a-hash", "bcrypt$abc$def", "argon2id$!!!$!!!"} {
		if _, err := VerifyPassword("s3cret-pass", stored); !errors.Is(err, ErrHashFormat) {
			t.Fatalf("expected ErrHashFormat for %q, got %v", stored, err)
		}
	}
}
