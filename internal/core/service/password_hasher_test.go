package service

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("hash must not equal plaintext")
	}
	if !h.Verify("correct horse", hash) {
		t.Fatalf("expected password to verify")
	}
	if h.Verify("battery staple", hash) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("samepassword")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := h.Hash("samepassword")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct hashes for the same password")
	}
	if !h.Verify("samepassword", first) || !h.Verify("samepassword", second) {
		t.Fatalf("both salted hashes must verify")
	}

	other, _ := h.Hash("otherpassword")
	if other == first {
		t.Fatalf("different passwords produced the same hash")
	}
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	for _, bad := range []string{"", "not-a-hash", "$2a$04$short", strings.Repeat("x", 60)} {
		if h.Verify("password", bad) {
			t.Fatalf("malformed hash %q must not verify", bad)
		}
	}
}

func TestBcryptHasher_Cost(t *testing.T) {
	hash, err := NewBcryptHasher(bcrypt.MinCost).Hash("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if cost, _ := bcrypt.Cost([]byte(hash)); cost != bcrypt.MinCost {
		t.Fatalf("expected cost %d, got %d", bcrypt.MinCost, cost)
	}

	if NewBcryptHasher(0).cost != bcrypt.DefaultCost {
		t.Fatalf("out of range cost must fall back to default")
	}
	if NewBcryptHasher(bcrypt.MaxCost+1).cost != bcrypt.DefaultCost {
		t.Fatalf("out of range cost must fall back to default")
	}
}

func TestBcryptHasher_TooLong(t *testing.T) {
	if _, err := NewBcryptHasher(bcrypt.MinCost).Hash(strings.Repeat("a", 73)); err == nil {
		t.Fatalf("expected error for password over 72 bytes")
	}
}
