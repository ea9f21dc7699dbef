package plccore

import (
	"time"

	"github.com/primal-host/plcmirror/internal/plcerr"
)

// lateRecoveryWindow is the maximum allowed elapsed time between the
// first nullified operation's createdAt and a nullifying proposal's
// createdAt. Exactly 72h is accepted; anything strictly greater fails.
const lateRecoveryWindow = 72 * time.Hour

// StepResult is the outcome of applying a proposed operation to a
// confirmed history prefix.
type StepResult struct {
	// Nullified holds the CIDs of any confirmed operations displaced by
	// this step. It is a reporting side-channel only — ValidateLog never
	// retains it across steps.
	Nullified []string
	// Prev is the proposed operation's own prev link (nil only for
	// genesis).
	Prev *string
	// Ops is the new confirmed history after this step.
	Ops []IndexedOperation
}

// Step decides whether proposed may extend confirmed, and if so,
// whether it nullifies a suffix of it. did is the DID the log is
// indexed under, used only for genesis binding.
func Step(did string, confirmed []IndexedOperation, proposed IndexedOperation) (*StepResult, error) {
	// Case A: genesis.
	if len(confirmed) == 0 {
		if err := AssureValidGenesis(did, &proposed.Op); err != nil {
			return nil, err
		}
		return &StepResult{
			Nullified: nil,
			Prev:      nil,
			Ops:       []IndexedOperation{proposed},
		}, nil
	}

	// Case B: only genesis may have a null prev.
	if proposed.Op.Prev == nil {
		return nil, plcerr.NewMisordered("non-genesis operation must have a prev")
	}

	// Case C: find the first confirmed operation the proposal extends.
	idx := -1
	for i, c := range confirmed {
		if c.CID == *proposed.Op.Prev {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, plcerr.NewMisordered("prev does not reference any confirmed operation")
	}

	prefix := confirmed[:idx+1]
	tail := confirmed[idx+1:]
	head := prefix[len(prefix)-1]

	// Case D: no operation may extend past a tombstone.
	if head.Op.IsTombstone() {
		return nil, plcerr.NewMisordered("cannot extend past a tombstone")
	}

	allowedKeys := Normalize(&head.Op).RotationKeys

	// Case E: no nullification.
	if len(tail) == 0 {
		if _, err := VerifySig(allowedKeys, &proposed.Op); err != nil {
			return nil, err
		}
		newOps := make([]IndexedOperation, 0, len(confirmed)+1)
		newOps = append(newOps, confirmed...)
		newOps = append(newOps, proposed)
		return &StepResult{
			Nullified: nil,
			Prev:      proposed.Op.Prev,
			Ops:       newOps,
		}, nil
	}

	// Case F: nullification.
	firstNullified := tail[0]

	// The displaced signer's identity must be known before the power
	// threshold can be computed, so its signature is verified first.
	disputedSigner, err := VerifySig(allowedKeys, &firstNullified.Op)
	if err != nil {
		return nil, err
	}

	powerIndex := indexOf(allowedKeys, disputedSigner)
	morePowerful := allowedKeys[:powerIndex]

	if _, err := VerifySig(morePowerful, &proposed.Op); err != nil {
		return nil, &plcerr.InvalidSignature{OpCID: proposed.CID}
	}

	delta := proposed.CreatedAt.Sub(firstNullified.CreatedAt)
	if delta > lateRecoveryWindow {
		return nil, &plcerr.LateRecovery{ElapsedMillis: delta.Milliseconds()}
	}

	nullified := make([]string, len(tail))
	for i, op := range tail {
		nullified[i] = op.CID
	}

	newOps := make([]IndexedOperation, 0, len(prefix)+1)
	newOps = append(newOps, prefix...)
	newOps = append(newOps, proposed)

	return &StepResult{
		Nullified: nullified,
		Prev:      proposed.Op.Prev,
		Ops:       newOps,
	}, nil
}

// indexOf returns the first index of key in keys, or len(keys) if not
// found (duplicate entries collapse to their earliest occurrence).
func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return len(keys)
}
