package plccore

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/bluesky-social/indigo/atproto/atcrypto"
)

// testKey bundles a generated signing key with its did:key form so
// table-driven tests can refer to "the more powerful key" etc. by name.
type testKey struct {
	priv   atcrypto.PrivateKeyExportable
	didKey string
}

func newTestKey(t *testing.T) testKey {
	t.Helper()
	priv, err := atcrypto.GeneratePrivateKeyK256()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pub, err := priv.PublicKey()
	if err != nil {
		t.Fatalf("derive public key: %v", err)
	}
	return testKey{priv: priv, didKey: pub.DIDKey()}
}

// sign fills in op.Sig with a valid base64url (unpadded) signature over
// op's canonical hash form, using k.
func (k testKey) sign(t *testing.T, op *Op) {
	t.Helper()
	data, err := EncodeForHash(op)
	if err != nil {
		t.Fatalf("encode for hash: %v", err)
	}
	sig, err := k.priv.HashAndSign(data)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	op.Sig = base64.RawURLEncoding.EncodeToString(sig)
}

// strp returns a pointer to s, for populating Op.Prev literals.
func strp(s string) *string { return &s }

// mustGenesis builds a v2 genesis operation listing every key in
// rotationKeys (in order) as its rotation keys and rotationKeys[0] as its
// atproto verification method, signs it with signer, then returns it
// alongside the DID it binds to.
func mustGenesis(t *testing.T, rotationKeys []testKey, signer testKey) (Op, string) {
	t.Helper()
	keys := make([]string, len(rotationKeys))
	for i, k := range rotationKeys {
		keys[i] = k.didKey
	}
	op := Op{
		Type:                OpTypeOperation,
		VerificationMethods: map[string]string{"atproto": rotationKeys[0].didKey},
		RotationKeys:        keys,
		AlsoKnownAs:         []string{"at://alice.example.com"},
		Services: map[string]Service{
			"atproto_pds": {Type: "AtprotoPersonalDataServer", Endpoint: "https://pds.example.com"},
		},
		Prev: nil,
	}
	signer.sign(t, &op)
	did, err := DIDFor(&op)
	if err != nil {
		t.Fatalf("did for genesis: %v", err)
	}
	return op, did
}

// mustIndexed computes op's CID and wraps it with createdAt into an
// IndexedOperation.
func mustIndexed(t *testing.T, op Op, createdAt time.Time) IndexedOperation {
	t.Helper()
	c, err := CidOf(&op)
	if err != nil {
		t.Fatalf("cid of op: %v", err)
	}
	return IndexedOperation{Op: op, CID: CidToString(c), CreatedAt: createdAt}
}

// mustFollowOn builds a v2 operation extending prev, signed by signer,
// with the given rotation key set (defaults to carrying prev's keys
// forward if rotationKeys is nil).
func mustFollowOn(t *testing.T, prev IndexedOperation, rotationKeys []string, aka string, signer testKey) Op {
	t.Helper()
	if rotationKeys == nil {
		rotationKeys = Normalize(&prev.Op).RotationKeys
	}
	op := Op{
		Type:                OpTypeOperation,
		VerificationMethods: Normalize(&prev.Op).VerificationMethods,
		RotationKeys:        rotationKeys,
		AlsoKnownAs:         []string{aka},
		Services:            Normalize(&prev.Op).Services,
		Prev:                strp(prev.CID),
	}
	signer.sign(t, &op)
	return op
}
