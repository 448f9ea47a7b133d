package security_test

import (
	"testing"
	"unicode"

	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/security"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPIN(t *testing.T) {
	hash, err := security.HashPIN("4821", testPasswordConfig())
	if err != nil {
		t.Fatalf("HashPIN returned error: %v", err)
	}
	if hash == "" || hash == "4821" {
		t.Fatalf("HashPIN returned unusable hash %q", hash)
	}

	ok, err := security.VerifyPIN("4821", hash)
	if err != nil {
		t.Fatalf("VerifyPIN returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPIN failed for the correct PIN")
	}

	ok, err = security.VerifyPIN("0000", hash)
	if err != nil {
		t.Fatalf("VerifyPIN returned error for wrong PIN: %v", err)
	}
	if ok {
		t.Fatal("VerifyPIN returned true for incorrect PIN")
	}
}

func TestHashPINRejectsEmpty(t *testing.T) {
	if _, err := security.HashPIN("", testPasswordConfig()); err == nil {
		t.Fatal("expected empty pin to be rejected")
	}
}

func TestVerifyPINBadHash(t *testing.T) {
	if _, err := security.VerifyPIN("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestGeneratePIN(t *testing.T) {
	pin, err := security.GeneratePIN(6)
	if err != nil {
		t.Fatalf("GeneratePIN returned error: %v", err)
	}
	if len(pin) != 6 {
		t.Fatalf("expected 6 digits, got %q", pin)
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			t.Fatalf("expected digits only, got %q", pin)
		}
	}
	if _, err := security.GeneratePIN(0); err == nil {
		t.Fatal("expected zero length to fail")
	}
}
