package plccore

import "strings"

// Normalize maps a legacy v1 create operation into the canonical v2
// plc_operation shape used by downstream readers. A v2 op is returned
// unchanged. Normalization is purely structural — it neither re-signs
// nor is canonical for hashing; v1 operations must still be hashed in
// their v1 form via EncodeForHash/EncodeFull.
//
// Normalize is idempotent: Normalize(Normalize(op)) == Normalize(op).
func Normalize(op *Op) *Op {
	if op.Type == OpTypeOperation {
		return op
	}

	return &Op{
		Type: OpTypeOperation,
		VerificationMethods: map[string]string{
			"atproto": op.SigningKey,
		},
		RotationKeys: []string{op.RecoveryKey, op.SigningKey},
		AlsoKnownAs:  []string{ensureAt(op.Handle)},
		Services: map[string]Service{
			"atproto_pds": {
				Type:     "AtprotoPersonalDataServer",
				Endpoint: ensureHTTPS(op.Service),
			},
		},
		Prev: op.Prev,
		Sig:  op.Sig,
	}
}

// ensureHTTPS prepends "https://" unless s already has an http(s)
// scheme.
func ensureHTTPS(s string) string {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return "https://" + s
}

// ensureAt prepends "at://" unless s already has one, stripping the
// first occurrence of an http(s) scheme found anywhere in the string.
// This matches the upstream directory's behavior exactly, quirks
// included: the strip is not anchored to the start of the string.
func ensureAt(s string) string {
	if strings.HasPrefix(s, "at://") {
		return s
	}
	for _, scheme := range []string{"https://", "http://"} {
		if idx := strings.Index(s, scheme); idx != -1 {
			s = s[:idx] + s[idx+len(scheme):]
			break
		}
	}
	return "at://" + s
}
