package utils

import (
	"errors"
	"testing"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "volunteer", 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := ParseAccessToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.Role != "volunteer" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, err := NewAccessToken("secret", 7, "ngo_admin", 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	expired, err := NewAccessToken("secret", 7, "ngo_admin", -1)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tests := []struct {
		name   string
		secret string
		raw    string
	}{
		{name: "wrong secret", secret: "other", raw: good.Token},
		{name: "expired", secret: "secret", raw: expired.Token},
		{name: "garbage", secret: "secret", raw: "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAccessToken(tt.secret, tt.raw); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	rt, err := NewRefreshToken(1)
	if err != nil {
		t.Fatalf("new refresh: %v", err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("raw length = %d, want 96", len(rt.Raw))
	}
	if HashRefreshRaw(rt.Raw) != HashRefreshRaw(rt.Raw) {
		t.Fatal("hash is not deterministic")
	}
	if HashRefreshRaw(rt.Raw) == rt.Raw {
		t.Fatal("hash equals raw token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(hash, "hunter22") {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatal("wrong password verified")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("err = %v, want ErrWeakPassword", err)
	}
	if err := ValidatePassword("long enough"); err != nil {
		t.Fatalf("err = %v", err)
	}
}
