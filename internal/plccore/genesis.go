package plccore

import (
	"crypto/sha256"
	"encoding/base32"
	"strings"

	"github.com/primal-host/plcmirror/internal/plcerr"
)

// didIDLength is the number of base32 characters taken from the SHA-256
// digest of the genesis operation's canonical CBOR to form the DID.
const didIDLength = 24

// DIDFor derives the did:plc identifier a genesis operation binds to:
// SHA-256 of the canonical CBOR of genesis (signature included,
// normalization not applied), base32-lower, truncated to the first 24
// characters, prefixed "did:plc:".
func DIDFor(genesis *Op) (string, error) {
	data, err := EncodeFull(genesis)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	encoded := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:]))
	return "did:plc:" + encoded[:didIDLength], nil
}

// AssureValidGenesis checks that op is a legitimate genesis operation
// for did: it must not be a tombstone, must verify under its own
// declared rotation keys, must hash to did via DIDFor, and must declare
// a null prev.
func AssureValidGenesis(did string, op *Op) error {
	if op.IsTombstone() {
		return plcerr.NewMisordered("genesis operation cannot be a tombstone")
	}

	allowedKeys := Normalize(op).RotationKeys
	if _, err := VerifySig(allowedKeys, op); err != nil {
		return err
	}

	expected, err := DIDFor(op)
	if err != nil {
		return err
	}
	if expected != did {
		return &plcerr.GenesisHash{Expected: expected}
	}

	if op.Prev != nil {
		return plcerr.NewImproperOperation("genesis operation must have a null prev")
	}

	return nil
}
