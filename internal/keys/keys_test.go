package keys

import (
	"strings"
	"testing"
)

func TestGenerateParseDIDKeyRoundTrip(t *testing.T) {
	mb, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if mb == "" {
		t.Fatal("Generate returned empty multibase string")
	}

	priv, err := Parse(mb)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if priv == nil {
		t.Fatal("Parse returned nil key")
	}

	didKey, err := DIDKey(mb)
	if err != nil {
		t.Fatalf("DIDKey: %v", err)
	}
	if !strings.HasPrefix(didKey, "did:key:") {
		t.Errorf("DIDKey() = %q, want did:key: prefix", didKey)
	}
}

func TestParseInvalidMultibase(t *testing.T) {
	if _, err := Parse("not-a-valid-key"); err == nil {
		t.Fatal("expected error for invalid multibase string")
	}
}

func TestDIDKeyDeterministic(t *testing.T) {
	mb, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	a, err := DIDKey(mb)
	if err != nil {
		t.Fatalf("DIDKey: %v", err)
	}
	b, err := DIDKey(mb)
	if err != nil {
		t.Fatalf("DIDKey: %v", err)
	}
	if a != b {
		t.Errorf("DIDKey not deterministic: %q != %q", a, b)
	}
}
