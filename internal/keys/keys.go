// Package keys provides signing-key generation and parsing for tooling
// that needs to produce or inspect did:plc operations — test fixture
// generators and the plcimport CLI's -gen-genesis-key helper, not the
// validator itself (plccore never generates or holds a private key).
package keys

import (
	"fmt"

	"github.com/bluesky-social/indigo/atproto/atcrypto"
)

// Generate creates a new secp256k1 private key and returns its
// multibase-encoded string for storage.
func Generate() (string, error) {
	priv, err := atcrypto.GeneratePrivateKeyK256()
	if err != nil {
		return "", fmt.Errorf("keys: generate: %w", err)
	}
	return priv.Multibase(), nil
}

// Parse loads a private key from its multibase-encoded string.
func Parse(multibase string) (atcrypto.PrivateKeyExportable, error) {
	priv, err := atcrypto.ParsePrivateMultibase(multibase)
	if err != nil {
		return nil, fmt.Errorf("keys: parse: %w", err)
	}
	return priv, nil
}

// DIDKey derives the did:key identifier for a multibase-encoded private
// key, the form used as an entry in an operation's rotationKeys list.
func DIDKey(multibase string) (string, error) {
	priv, err := Parse(multibase)
	if err != nil {
		return "", err
	}
	pub, err := priv.PublicKey()
	if err != nil {
		return "", fmt.Errorf("keys: derive public key: %w", err)
	}
	return pub.DIDKey(), nil
}
