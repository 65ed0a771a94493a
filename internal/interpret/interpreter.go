package interpret

import (
	"fmt"

	"github.com/jmespath/go-jmespath"

	"github.com/ossien/graphsink/internal/fact"
)

// Interpreter turns raw records into facts by evaluating the compiled
// extraction expressions of every interpretation rule.
type Interpreter struct {
	rules []compiledRule
}

type compiledRule struct {
	source Interpretation
	policy fact.NormalizationPolicy

	key        map[string]*jmespath.JMESPath
	properties map[string]*jmespath.JMESPath
	relKey     map[string]*jmespath.JMESPath
	fromKey    map[string]*jmespath.JMESPath
	toKey      map[string]*jmespath.JMESPath
}

// Compile compiles every extraction expression in the pipeline once, so
// per-record evaluation does no parsing.
func Compile(p Pipeline) (*Interpreter, error) {
	rules := make([]compiledRule, 0, len(p.Interpretations))
	for i, rule := range p.Interpretations {
		compiled := compiledRule{
			source: rule,
			policy: fact.NormalizationPolicy{
				TrimWhitespace:   rule.Normalization.TrimWhitespace,
				LowercaseStrings: rule.Normalization.LowercaseStrings,
			},
		}

		var err error
		if compiled.key, err = compileExpressions(rule.Key); err != nil {
			return nil, fmt.Errorf("interpretation %d key: %w", i, err)
		}
		if compiled.properties, err = compileExpressions(rule.Properties); err != nil {
			return nil, fmt.Errorf("interpretation %d properties: %w", i, err)
		}
		if compiled.relKey, err = compileExpressions(rule.RelationshipKey); err != nil {
			return nil, fmt.Errorf("interpretation %d relationship_key: %w", i, err)
		}
		if compiled.fromKey, err = compileExpressions(rule.FromNode.Key); err != nil {
			return nil, fmt.Errorf("interpretation %d from_node key: %w", i, err)
		}
		if compiled.toKey, err = compileExpressions(rule.ToNode.Key); err != nil {
			return nil, fmt.Errorf("interpretation %d to_node key: %w", i, err)
		}
		rules = append(rules, compiled)
	}
	return &Interpreter{rules: rules}, nil
}

func compileExpressions(exprs map[string]string) (map[string]*jmespath.JMESPath, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make(map[string]*jmespath.JMESPath, len(exprs))
	for field, expr := range exprs {
		jp, err := jmespath.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("field %s: compile %q: %w", field, expr, err)
		}
		out[field] = jp
	}
	return out, nil
}

// Interpret evaluates every rule against one record and returns the facts it
// yields. Extraction expressions that match nothing produce nil values; the
// sink decides whether the resulting fact is still usable.
func (it *Interpreter) Interpret(record map[string]any) ([]fact.Fact, error) {
	facts := make([]fact.Fact, 0, len(it.rules))
	for _, rule := range it.rules {
		switch rule.source.Type {
		case "source_node":
			key, err := extract(rule.key, record)
			if err != nil {
				return nil, err
			}
			props, err := extract(rule.properties, record)
			if err != nil {
				return nil, err
			}
			facts = append(facts, fact.NewNodeFact(rule.source.NodeType, key, props, rule.source.AdditionalTypes, rule.policy))
		case "relationship":
			relKey, err := extract(rule.relKey, record)
			if err != nil {
				return nil, err
			}
			props, err := extract(rule.properties, record)
			if err != nil {
				return nil, err
			}
			fromKey, err := extract(rule.fromKey, record)
			if err != nil {
				return nil, err
			}
			toKey, err := extract(rule.toKey, record)
			if err != nil {
				return nil, err
			}
			facts = append(facts, fact.NewRelationshipFact(
				rule.source.RelationshipType,
				relKey,
				fact.NodeRef{Type: rule.source.FromNode.NodeType, Key: fromKey},
				fact.NodeRef{Type: rule.source.ToNode.NodeType, Key: toKey},
				props,
				rule.policy,
			))
		}
	}
	return facts, nil
}

func extract(exprs map[string]*jmespath.JMESPath, record map[string]any) (map[string]any, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(exprs))
	for field, jp := range exprs {
		value, err := jp.Search(record)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", field, err)
		}
		out[field] = value
	}
	return out, nil
}
