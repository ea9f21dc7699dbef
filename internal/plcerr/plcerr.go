// Package plcerr defines the typed validation-error taxonomy raised by
// internal/plccore. Every error here satisfies ValidationError so callers
// can classify "validation failure" against "internal error" with a
// single errors.As check.
package plcerr

import "fmt"

// ValidationError is the common base every plccore error satisfies.
// HTTP collaborators type-assert on this to decide between a 500 with
// a human message and a generic internal-error response.
type ValidationError interface {
	error
	plcValidationError()
}

// base gives every concrete error type the marker method for free.
type base struct{}

func (base) plcValidationError() {}

// Misordered is raised when a proposed operation's prev link cannot be
// placed in the confirmed history: unknown prev, null prev past
// genesis, or an attempt to extend a tombstoned branch.
type Misordered struct {
	base
	Reason string
}

func (e *Misordered) Error() string {
	if e.Reason == "" {
		return "plc: misordered operation"
	}
	return "plc: misordered operation: " + e.Reason
}

// NewMisordered builds a Misordered error with a diagnostic reason.
func NewMisordered(reason string) *Misordered {
	return &Misordered{Reason: reason}
}

// InvalidSignature is raised when an operation's signature fails to
// verify under every candidate did-key.
type InvalidSignature struct {
	base
	// OpCID is the CID of the offending operation, when known.
	OpCID string
}

func (e *InvalidSignature) Error() string {
	if e.OpCID == "" {
		return "plc: invalid signature"
	}
	return fmt.Sprintf("plc: invalid signature on operation %s", e.OpCID)
}

// GenesisHash is raised when the DID derived from the genesis operation
// does not match the DID the log is indexed under.
type GenesisHash struct {
	base
	// Expected is the DID the genesis operation actually hashes to.
	Expected string
}

func (e *GenesisHash) Error() string {
	return fmt.Sprintf("plc: genesis hash mismatch, expected %s", e.Expected)
}

// ImproperOperation is raised by the genesis binder for a structurally
// invalid genesis operation (a non-null prev). A tombstone used as
// genesis is reported as Misordered instead.
type ImproperOperation struct {
	base
	Message string
}

func (e *ImproperOperation) Error() string {
	return "plc: improper operation: " + e.Message
}

// NewImproperOperation builds an ImproperOperation error.
func NewImproperOperation(message string) *ImproperOperation {
	return &ImproperOperation{Message: message}
}

// LateRecovery is raised when a nullifying operation's createdAt is more
// than 72 hours past the first nullified operation's createdAt.
type LateRecovery struct {
	base
	// ElapsedMillis is the computed delta in milliseconds.
	ElapsedMillis int64
}

func (e *LateRecovery) Error() string {
	return fmt.Sprintf("plc: late recovery, %dms elapsed", e.ElapsedMillis)
}
