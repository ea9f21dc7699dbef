package plccore

import (
	"encoding/base64"
	"strings"

	"github.com/bluesky-social/indigo/atproto/atcrypto"

	"github.com/primal-host/plcmirror/internal/plcerr"
)

// VerifySig verifies op's signature against the first did-key in
// allowedDIDKeys that successfully verifies, returning that did-key.
// allowedDIDKeys is tried in order, most powerful (lowest index) first,
// matching the rotation-key precedence the step validator relies on.
//
// A signature ending in '=' is rejected before any cryptographic call:
// the upstream directory encodes signatures as unpadded base64url, and
// a trailing '=' is treated as malformed before any decoding is tried.
func VerifySig(allowedDIDKeys []string, op *Op) (string, error) {
	if op.Sig == "" || strings.HasSuffix(op.Sig, "=") {
		return "", &plcerr.InvalidSignature{}
	}

	sigBytes, err := base64.RawURLEncoding.DecodeString(op.Sig)
	if err != nil {
		return "", &plcerr.InvalidSignature{}
	}

	data, err := EncodeForHash(op)
	if err != nil {
		return "", &plcerr.InvalidSignature{}
	}

	for _, didKey := range allowedDIDKeys {
		pub, err := atcrypto.ParsePublicDIDKey(didKey)
		if err != nil {
			continue
		}
		if err := pub.HashAndVerify(data, sigBytes); err == nil {
			return didKey, nil
		}
	}

	return "", &plcerr.InvalidSignature{}
}
