// Package plccore is the did:plc operation-log validator. It is a pure,
// single-threaded-per-call state machine: given a DID and an ordered
// sequence of signed operations, it either derives the current identity
// document or rejects the log with a typed error from internal/plcerr.
//
// The package performs no I/O and holds no package-level mutable state;
// every exported function operates only on its arguments.
package plccore

import "time"

// OpType discriminates the operation variants in the tagged union.
type OpType string

// Operation type discriminators, matching the wire values used by the
// upstream PLC directory.
const (
	OpTypeOperation  OpType = "plc_operation"
	OpTypeCreate     OpType = "create"
	OpTypeTombstone  OpType = "plc_tombstone"
)

// Service describes a single service endpoint entry, e.g. the
// atproto_pds entry pointing at a user's PDS.
type Service struct {
	Type     string `json:"type"`
	Endpoint string `json:"endpoint"`
}

// Op is a single operation in a did:plc log, in its on-wire shape. The
// field set actually populated depends on Type:
//
//   - plc_operation: VerificationMethods, RotationKeys, AlsoKnownAs,
//     Services, Prev, Sig.
//   - create (v1, legacy): SigningKey, RecoveryKey, Handle, Service,
//     Prev (always nil), Sig.
//   - plc_tombstone: Prev, Sig.
//
// Op is never mutated once constructed; normalization and nullification
// only change which Ops belong to the confirmed prefix.
type Op struct {
	Type OpType `json:"type"`

	// v2 plc_operation fields.
	VerificationMethods map[string]string  `json:"verificationMethods,omitempty"`
	RotationKeys        []string           `json:"rotationKeys,omitempty"`
	AlsoKnownAs         []string           `json:"alsoKnownAs,omitempty"`
	Services            map[string]Service `json:"services,omitempty"`

	// v1 create fields.
	SigningKey  string `json:"signingKey,omitempty"`
	RecoveryKey string `json:"recoveryKey,omitempty"`
	Handle      string `json:"handle,omitempty"`
	Service     string `json:"service,omitempty"`

	// Shared fields.
	Prev *string `json:"prev"`
	Sig  string  `json:"sig,omitempty"`
}

// IsTombstone reports whether op is a plc_tombstone.
func (op *Op) IsTombstone() bool {
	return op.Type == OpTypeTombstone
}

// IndexedOperation wraps an Op with its content-derived CID and the
// createdAt timestamp assigned by storage. The CID and CreatedAt are
// not recomputed by plccore; callers (the store/importer collaborators)
// are responsible for supplying a CID consistent with CidOf(op).
type IndexedOperation struct {
	Op        Op
	CID       string
	CreatedAt time.Time
}

// Document is the identity document derived from the most recent
// non-tombstone operation in a DID's validated log.
type Document struct {
	DID                 string             `json:"did"`
	VerificationMethods map[string]string  `json:"verificationMethods"`
	RotationKeys        []string           `json:"rotationKeys"`
	AlsoKnownAs         []string           `json:"alsoKnownAs"`
	Services            map[string]Service `json:"services"`
}
