package fact

import "fmt"

// ValidationError reports a fact whose key cannot form a usable identity.
// Such records are skipped by the sink rather than failing the stream.
type ValidationError struct {
	Kind   Kind
	Type   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Type, e.Reason)
}

// Validate checks that a fact's identity keys are present and non-nil. The
// normalizer is total, so malformed inputs surface here instead: a node with
// no key fields, or a key field carrying a nil value, has no identity to
// merge on.
func Validate(f Fact) error {
	switch v := f.(type) {
	case *NodeFact:
		return validateKey(v.Kind(), v.NodeType, v.Key, "node key")
	case *RelationshipFact:
		if err := validateKey(v.Kind(), v.RelType, v.From.Key, "from endpoint key"); err != nil {
			return err
		}
		return validateKey(v.Kind(), v.RelType, v.To.Key, "to endpoint key")
	default:
		return &ValidationError{Kind: f.Kind(), Type: f.Type(), Reason: fmt.Sprintf("unsupported fact %T", f)}
	}
}

func validateKey(kind Kind, typ string, key map[string]any, what string) error {
	if len(key) == 0 {
		return &ValidationError{Kind: kind, Type: typ, Reason: what + " is empty"}
	}
	for field, value := range key {
		if value == nil {
			return &ValidationError{Kind: kind, Type: typ, Reason: fmt.Sprintf("%s field %q is nil", what, field)}
		}
	}
	return nil
}
