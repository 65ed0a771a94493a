package fact

import "strings"

// NormalizationPolicy controls how key-field values are canonicalized before
// they participate in identity comparison or batching.
type NormalizationPolicy struct {
	TrimWhitespace   bool
	LowercaseStrings bool
}

// NormalizeKey canonicalizes the string values of a key mapping according to
// the policy. Non-string values pass through unchanged. The function is pure
// and idempotent: normalizing an already-normalized key yields the same key.
func NormalizeKey(key map[string]any, policy NormalizationPolicy) map[string]any {
	if len(key) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(key))
	for field, value := range key {
		out[field] = normalizeValue(value, policy)
	}
	return out
}

func normalizeValue(value any, policy NormalizationPolicy) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	if policy.TrimWhitespace {
		s = strings.TrimSpace(s)
	}
	if policy.LowercaseStrings {
		s = strings.ToLower(s)
	}
	return s
}
