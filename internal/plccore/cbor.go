package plccore

import (
	"bytes"
	"fmt"
	"sort"

	cbg "github.com/whyrusleeping/cbor-gen"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// cborNull is the single-byte dag-cbor encoding of a null value (major
// type 7, simple value 22).
var cborNull = []byte{0xf6}

// EncodeForHash returns the canonical dag-cbor encoding of op with the
// sig field removed, as required for both signature verification and
// signing. Map keys are written in the upstream directory's canonical
// order: alphabetical over the field's own key string, same as the
// nested verificationMethods/services maps.
func EncodeForHash(op *Op) ([]byte, error) {
	return encodeOp(op, false)
}

// EncodeFull returns the canonical dag-cbor encoding of op including
// sig. Used for prev-linkage (CID of the previous operation) and for
// genesis DID derivation, both of which hash the operation as
// published, signature included.
func EncodeFull(op *Op) ([]byte, error) {
	return encodeOp(op, true)
}

// encodeOp dispatches to the per-variant encoder. Legacy v1 create
// operations must be hashed in their v1 form — normalization to v2 is
// purely a read-side view and is never used for hashing/signing.
func encodeOp(op *Op, includeSig bool) ([]byte, error) {
	switch op.Type {
	case OpTypeOperation:
		return encodeV2(op, includeSig)
	case OpTypeCreate:
		return encodeV1(op, includeSig)
	case OpTypeTombstone:
		return encodeTombstone(op, includeSig)
	default:
		return nil, fmt.Errorf("plccore: encode: unknown op type %q", op.Type)
	}
}

// encodeV2 writes the canonical dag-cbor map for a plc_operation. Field
// order (alphabetical, as observed from the upstream directory's
// @ipld/dag-cbor canonicalization):
//
//	without sig: alsoKnownAs, prev, rotationKeys, services, type, verificationMethods
//	with sig:    alsoKnownAs, prev, rotationKeys, services, sig, type, verificationMethods
func encodeV2(op *Op, includeSig bool) ([]byte, error) {
	var buf bytes.Buffer
	cw := cbg.NewCborWriter(&buf)

	n := 6
	if includeSig {
		n = 7
	}
	if err := cw.WriteMajorTypeHeader(cbg.MajMap, uint64(n)); err != nil {
		return nil, err
	}

	if err := writeTextString(cw, "alsoKnownAs"); err != nil {
		return nil, err
	}
	if err := writeStringArray(cw, op.AlsoKnownAs); err != nil {
		return nil, err
	}

	if err := writeTextString(cw, "prev"); err != nil {
		return nil, err
	}
	if err := writeOptString(cw, op.Prev); err != nil {
		return nil, err
	}

	if err := writeTextString(cw, "rotationKeys"); err != nil {
		return nil, err
	}
	if err := writeStringArray(cw, op.RotationKeys); err != nil {
		return nil, err
	}

	if err := writeTextString(cw, "services"); err != nil {
		return nil, err
	}
	if err := writeServiceMap(cw, op.Services); err != nil {
		return nil, err
	}

	if includeSig {
		if err := writeTextString(cw, "sig"); err != nil {
			return nil, err
		}
		if err := writeTextString(cw, op.Sig); err != nil {
			return nil, err
		}
	}

	if err := writeTextString(cw, "type"); err != nil {
		return nil, err
	}
	if err := writeTextString(cw, string(op.Type)); err != nil {
		return nil, err
	}

	if err := writeTextString(cw, "verificationMethods"); err != nil {
		return nil, err
	}
	if err := writeStringMap(cw, op.VerificationMethods); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// encodeV1 writes the canonical dag-cbor map for a legacy v1 create
// operation. Field order (alphabetical):
//
//	without sig: handle, prev, recoveryKey, service, signingKey, type
//	with sig:    handle, prev, recoveryKey, service, sig, signingKey, type
func encodeV1(op *Op, includeSig bool) ([]byte, error) {
	var buf bytes.Buffer
	cw := cbg.NewCborWriter(&buf)

	n := 6
	if includeSig {
		n = 7
	}
	if err := cw.WriteMajorTypeHeader(cbg.MajMap, uint64(n)); err != nil {
		return nil, err
	}

	if err := writeTextString(cw, "handle"); err != nil {
		return nil, err
	}
	if err := writeTextString(cw, op.Handle); err != nil {
		return nil, err
	}

	if err := writeTextString(cw, "prev"); err != nil {
		return nil, err
	}
	if err := writeOptString(cw, op.Prev); err != nil {
		return nil, err
	}

	if err := writeTextString(cw, "recoveryKey"); err != nil {
		return nil, err
	}
	if err := writeTextString(cw, op.RecoveryKey); err != nil {
		return nil, err
	}

	if err := writeTextString(cw, "service"); err != nil {
		return nil, err
	}
	if err := writeTextString(cw, op.Service); err != nil {
		return nil, err
	}

	if includeSig {
		if err := writeTextString(cw, "sig"); err != nil {
			return nil, err
		}
		if err := writeTextString(cw, op.Sig); err != nil {
			return nil, err
		}
	}

	if err := writeTextString(cw, "signingKey"); err != nil {
		return nil, err
	}
	if err := writeTextString(cw, op.SigningKey); err != nil {
		return nil, err
	}

	if err := writeTextString(cw, "type"); err != nil {
		return nil, err
	}
	if err := writeTextString(cw, string(op.Type)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// encodeTombstone writes the canonical dag-cbor map for a plc_tombstone.
// Field order (alphabetical): prev, type (without sig); prev, sig, type
// (with sig).
func encodeTombstone(op *Op, includeSig bool) ([]byte, error) {
	var buf bytes.Buffer
	cw := cbg.NewCborWriter(&buf)

	n := 2
	if includeSig {
		n = 3
	}
	if err := cw.WriteMajorTypeHeader(cbg.MajMap, uint64(n)); err != nil {
		return nil, err
	}

	if err := writeTextString(cw, "prev"); err != nil {
		return nil, err
	}
	if err := writeOptString(cw, op.Prev); err != nil {
		return nil, err
	}

	if includeSig {
		if err := writeTextString(cw, "sig"); err != nil {
			return nil, err
		}
		if err := writeTextString(cw, op.Sig); err != nil {
			return nil, err
		}
	}

	if err := writeTextString(cw, "type"); err != nil {
		return nil, err
	}
	if err := writeTextString(cw, string(op.Type)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// writeTextString writes a dag-cbor text string (major type 3). Used both for
// map keys and string-valued fields — they have the same encoding.
func writeTextString(cw *cbg.CborWriter, s string) error {
	if err := cw.WriteMajorTypeHeader(cbg.MajTextString, uint64(len(s))); err != nil {
		return err
	}
	_, err := cw.Write([]byte(s))
	return err
}

// writeOptString writes a text string, or dag-cbor null if s is nil.
func writeOptString(cw *cbg.CborWriter, s *string) error {
	if s == nil {
		_, err := cw.Write(cborNull)
		return err
	}
	return writeTextString(cw, *s)
}

// writeStringArray writes a dag-cbor array of text strings, in the
// order given — AlsoKnownAs and RotationKeys are order-significant and
// must never be sorted.
func writeStringArray(cw *cbg.CborWriter, ss []string) error {
	if err := cw.WriteMajorTypeHeader(cbg.MajArray, uint64(len(ss))); err != nil {
		return err
	}
	for _, s := range ss {
		if err := writeTextString(cw, s); err != nil {
			return err
		}
	}
	return nil
}

// writeStringMap writes a dag-cbor map with string values, keys sorted
// bytewise ascending (matching the upstream directory's canonical map
// key order).
func writeStringMap(cw *cbg.CborWriter, m map[string]string) error {
	keys := sortedKeys(m)
	if err := cw.WriteMajorTypeHeader(cbg.MajMap, uint64(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeTextString(cw, k); err != nil {
			return err
		}
		if err := writeTextString(cw, m[k]); err != nil {
			return err
		}
	}
	return nil
}

// writeServiceMap writes a dag-cbor map of Service structs, keys sorted
// bytewise ascending. Each Service is itself a 2-entry map, field order
// alphabetical: endpoint, type.
func writeServiceMap(cw *cbg.CborWriter, m map[string]Service) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := cw.WriteMajorTypeHeader(cbg.MajMap, uint64(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeTextString(cw, k); err != nil {
			return err
		}
		svc := m[k]
		if err := cw.WriteMajorTypeHeader(cbg.MajMap, 2); err != nil {
			return err
		}
		if err := writeTextString(cw, "endpoint"); err != nil {
			return err
		}
		if err := writeTextString(cw, svc.Endpoint); err != nil {
			return err
		}
		if err := writeTextString(cw, "type"); err != nil {
			return err
		}
		if err := writeTextString(cw, svc.Type); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CidOf computes the CIDv1 (codec 0x71 dag-cbor, multihash sha2-256) of
// op's full canonical encoding (signature included). It is used for
// prev linkage and genesis DID derivation.
func CidOf(op *Op) (cid.Cid, error) {
	data, err := EncodeFull(op)
	if err != nil {
		return cid.Undef, fmt.Errorf("plccore: cid: encode: %w", err)
	}
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("plccore: cid: multihash: %w", err)
	}
	return cid.NewCidV1(cid.DagCBOR, mh), nil
}

// CidToString renders a CID in its base32-lower multibase string form.
func CidToString(c cid.Cid) string {
	return c.String()
}

// CidFromString parses a CID's base32-lower multibase string form. It
// satisfies CidFromString(CidToString(c)) == c.
func CidFromString(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("plccore: cid: decode %q: %w", s, err)
	}
	return c, nil
}
