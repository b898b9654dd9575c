package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !IsBcryptHash(hash) || IsBcryptHash("hunter2") {
		t.Fatal("IsBcryptHash misclassified input")
	}
	if !VerifyPassword(hash, "hunter2") || VerifyPassword(hash, "hunter3") {
		t.Fatal("VerifyPassword mismatch")
	}
}

func TestNewAccessToken(t *testing.T) {
	tok, err := NewAccessToken("secret", "maria", "SUPERADMIN", 5)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "maria" || claims["role"] != "SUPERADMIN" {
		t.Fatalf("unexpected claims %v", claims)
	}
	if _, err := NewAccessToken("", "maria", "ADMIN", 5); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
