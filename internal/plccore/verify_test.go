package plccore

import (
	"errors"
	"testing"

	"github.com/primal-host/plcmirror/internal/plcerr"
)

// Property 6 — signature round trip.
func TestVerifySig_RoundTrip(t *testing.T) {
	k := newTestKey(t)
	op := Op{
		Type:                OpTypeOperation,
		VerificationMethods: map[string]string{"atproto": k.didKey},
		RotationKeys:        []string{k.didKey},
		AlsoKnownAs:         []string{"at://alice.example.com"},
		Services: map[string]Service{
			"atproto_pds": {Type: "AtprotoPersonalDataServer", Endpoint: "https://pds.example.com"},
		},
	}
	k.sign(t, &op)

	signer, err := VerifySig([]string{k.didKey}, &op)
	if err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if signer != k.didKey {
		t.Errorf("expected signer %q, got %q", k.didKey, signer)
	}
}

func TestVerifySig_ReturnsFirstMatchingKey(t *testing.T) {
	a := newTestKey(t)
	b := newTestKey(t)
	op := Op{
		Type:                OpTypeOperation,
		VerificationMethods: map[string]string{"atproto": b.didKey},
		RotationKeys:        []string{a.didKey, b.didKey},
	}
	b.sign(t, &op)

	signer, err := VerifySig([]string{a.didKey, b.didKey}, &op)
	if err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if signer != b.didKey {
		t.Errorf("expected signer %q, got %q", b.didKey, signer)
	}
}

func TestVerifySig_FailsForWrongMessage(t *testing.T) {
	k := newTestKey(t)
	op := Op{
		Type:                OpTypeOperation,
		VerificationMethods: map[string]string{"atproto": k.didKey},
		RotationKeys:        []string{k.didKey},
		AlsoKnownAs:         []string{"at://alice.example.com"},
	}
	k.sign(t, &op)
	op.AlsoKnownAs = []string{"at://tampered.example.com"} // invalidates the signed hash

	_, err := VerifySig([]string{k.didKey}, &op)
	var is *plcerr.InvalidSignature
	if !errors.As(err, &is) {
		t.Fatalf("expected InvalidSignature for tampered op, got %v", err)
	}
}

func TestVerifySig_RejectsPaddedSignature(t *testing.T) {
	k := newTestKey(t)
	op := Op{Type: OpTypeTombstone, Prev: nil}
	k.sign(t, &op)
	op.Sig += "="

	_, err := VerifySig([]string{k.didKey}, &op)
	var is *plcerr.InvalidSignature
	if !errors.As(err, &is) {
		t.Fatalf("expected InvalidSignature for padded sig, got %v", err)
	}
}

func TestVerifySig_NoAllowedKeysFails(t *testing.T) {
	k := newTestKey(t)
	op := Op{Type: OpTypeTombstone, Prev: nil}
	k.sign(t, &op)

	_, err := VerifySig(nil, &op)
	var is *plcerr.InvalidSignature
	if !errors.As(err, &is) {
		t.Fatalf("expected InvalidSignature with empty key set, got %v", err)
	}
}
