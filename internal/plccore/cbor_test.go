package plccore

import "testing"

// Property 5 — CID/CBOR round trip: encoding is deterministic and
// content-addressed; identical operations produce identical CIDs.
func TestCidOf_Deterministic(t *testing.T) {
	k := newTestKey(t)
	op, _ := mustGenesis(t, []testKey{k}, k)

	c1, err := CidOf(&op)
	if err != nil {
		t.Fatalf("cid of: %v", err)
	}
	c2, err := CidOf(&op)
	if err != nil {
		t.Fatalf("cid of: %v", err)
	}
	if c1 != c2 {
		t.Fatalf("expected equal CIDs for equal operations, got %s != %s", c1, c2)
	}
}

// Two operations with any field difference must have different CIDs.
func TestCidOf_DiffersOnFieldChange(t *testing.T) {
	k := newTestKey(t)
	op, _ := mustGenesis(t, []testKey{k}, k)
	c1, _ := CidOf(&op)

	op2 := op
	op2.AlsoKnownAs = []string{"at://someone-else.example.com"}
	c2, _ := CidOf(&op2)

	if c1 == c2 {
		t.Fatal("expected different CIDs for different operations")
	}
}

func TestCidToString_RoundTrip(t *testing.T) {
	k := newTestKey(t)
	op, _ := mustGenesis(t, []testKey{k}, k)
	c, err := CidOf(&op)
	if err != nil {
		t.Fatalf("cid of: %v", err)
	}

	s := CidToString(c)
	back, err := CidFromString(s)
	if err != nil {
		t.Fatalf("cid from string: %v", err)
	}
	if back != c {
		t.Fatalf("round trip mismatch: %s != %s", back, c)
	}
}

// EncodeForHash must omit sig entirely (not merely null it), so
// encoding before and after signing an otherwise-identical op matches.
func TestEncodeForHash_ExcludesSig(t *testing.T) {
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
	before, err := EncodeForHash(&op)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	k.sign(t, &op)
	after, err := EncodeForHash(&op)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("expected EncodeForHash to be unaffected by sig")
	}
}

// EncodeFull must differ from EncodeForHash once signed, since it
// includes sig.
func TestEncodeFull_IncludesSig(t *testing.T) {
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

	hashForm, err := EncodeForHash(&op)
	if err != nil {
		t.Fatalf("encode for hash: %v", err)
	}
	fullForm, err := EncodeFull(&op)
	if err != nil {
		t.Fatalf("encode full: %v", err)
	}
	if string(hashForm) == string(fullForm) {
		t.Fatal("expected EncodeFull to differ from EncodeForHash once signed")
	}
}

// Multi-key services/verificationMethods maps must encode with keys in
// bytewise ascending order regardless of Go map iteration order.
func TestEncodeForHash_SortsDynamicMapKeys(t *testing.T) {
	op := Op{
		Type: OpTypeOperation,
		VerificationMethods: map[string]string{
			"zzz":     "did:key:zzz",
			"atproto": "did:key:aaa",
		},
		RotationKeys: []string{"did:key:aaa"},
		AlsoKnownAs:  []string{"at://alice.example.com"},
		Services: map[string]Service{
			"zzz_svc":     {Type: "Z", Endpoint: "https://z.example.com"},
			"atproto_pds": {Type: "AtprotoPersonalDataServer", Endpoint: "https://pds.example.com"},
		},
	}
	a, err := EncodeForHash(&op)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Re-encoding with a structurally identical (but freshly constructed,
	// different map-literal order) op must be byte-identical.
	op2 := Op{
		Type: OpTypeOperation,
		VerificationMethods: map[string]string{
			"atproto": "did:key:aaa",
			"zzz":     "did:key:zzz",
		},
		RotationKeys: []string{"did:key:aaa"},
		AlsoKnownAs:  []string{"at://alice.example.com"},
		Services: map[string]Service{
			"atproto_pds": {Type: "AtprotoPersonalDataServer", Endpoint: "https://pds.example.com"},
			"zzz_svc":     {Type: "Z", Endpoint: "https://z.example.com"},
		},
	}
	b, err := EncodeForHash(&op2)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("expected map key ordering to be independent of Go map literal order")
	}
}
