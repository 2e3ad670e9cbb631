package audit

// Mask returns a copy of snap with every field named in sensitiveFields
// replaced by RedactionMarker. The input is never mutated. A nil snapshot
// returns nil; an empty field list returns the input unchanged.
//
// Masking is keyed by field name, so the same field is redacted consistently
// on both the old and new side of an update.
func Mask(snap Snapshot, sensitiveFields []string) Snapshot {
	if snap == nil || len(sensitiveFields) == 0 {
		return snap
	}

	masked := snap.Clone()
	for _, field := range sensitiveFields {
		if _, ok := masked[field]; ok {
			masked[field] = RedactionMarker
		}
	}
	return masked
}
