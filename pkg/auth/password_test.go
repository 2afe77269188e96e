package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal the plain password")
	}

	if err := VerifyPassword(hash, "correct horse battery"); err != nil {
		t.Fatalf("expected password to verify: %v", err)
	}
	if err := VerifyPassword(hash, "wrong password"); err == nil {
		t.Fatal("expected verification to fail for a wrong password")
	}
}

func TestIsPasswordValid(t *testing.T) {
	if IsPasswordValid("short") {
		t.Fatal("expected short password to be rejected")
	}
	if !IsPasswordValid("longenough") {
		t.Fatal("expected 10-char password to be accepted")
	}
	if IsPasswordValid(strings.Repeat("a", MaxPasswordLength+1)) {
		t.Fatal("expected password over the bcrypt limit to be rejected")
	}
}
