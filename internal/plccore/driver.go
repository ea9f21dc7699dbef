package plccore

import "fmt"

// ValidateLog folds Step across the full operation sequence for did,
// returning the resulting identity document, nil if the log ends in a
// tombstone, or the typed error that caused validation to fail.
//
// ops must contain at least one operation — an empty slice is a caller
// error, not a validation failure, and ValidateLog panics via an
// explicit error rather than silently succeeding.
func ValidateLog(did string, ops []IndexedOperation) (*Document, error) {
	if len(ops) == 0 {
		panic(fmt.Errorf("plccore: ValidateLog: %s: ops must not be empty", did))
	}

	var history []IndexedOperation
	for _, op := range ops {
		result, err := Step(did, history, op)
		if err != nil {
			return nil, err
		}
		history = result.Ops
	}

	last := history[len(history)-1]
	if last.Op.IsTombstone() {
		return nil, nil
	}

	doc := Normalize(&last.Op)
	return &Document{
		DID:                 did,
		VerificationMethods: doc.VerificationMethods,
		RotationKeys:        doc.RotationKeys,
		AlsoKnownAs:         doc.AlsoKnownAs,
		Services:            doc.Services,
	}, nil
}
