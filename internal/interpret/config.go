// Package interpret is the declarative front end of the connector: a YAML
// pipeline file maps flat input records onto node and relationship facts
// using JMESPath expressions, compiled once at load time.
package interpret

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pipeline is the parsed shape of a pipeline file.
type Pipeline struct {
	Connector       string           `yaml:"connector"`
	BatchSize       int              `yaml:"batch_size"`
	Interpretations []Interpretation `yaml:"interpretations"`
}

// Interpretation declares how one kind of fact is pulled out of a record.
// Type selects the rule flavour: "source_node" or "relationship".
type Interpretation struct {
	Type string `yaml:"type"`

	// source_node fields
	NodeType        string            `yaml:"node_type"`
	Key             map[string]string `yaml:"key"`
	Properties      map[string]string `yaml:"properties"`
	AdditionalTypes []string          `yaml:"additional_types"`

	// relationship fields
	RelationshipType string            `yaml:"relationship_type"`
	RelationshipKey  map[string]string `yaml:"relationship_key"`
	FromNode         EndpointRule      `yaml:"from_node"`
	ToNode           EndpointRule      `yaml:"to_node"`

	Normalization NormalizationFlags `yaml:"normalization"`
}

// EndpointRule declares how a relationship endpoint is identified.
type EndpointRule struct {
	NodeType string            `yaml:"node_type"`
	Key      map[string]string `yaml:"key"`
}

// NormalizationFlags are the per-rule key-normalization switches.
type NormalizationFlags struct {
	TrimWhitespace   bool `yaml:"trim_whitespace"`
	LowercaseStrings bool `yaml:"lowercase_strings"`
}

// Load reads and parses a pipeline file.
func Load(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read pipeline file: %w", err)
	}
	return Parse(data)
}

// Parse parses pipeline YAML and validates rule shapes.
func Parse(data []byte) (Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pipeline{}, fmt.Errorf("parse pipeline file: %w", err)
	}

	for i, rule := range p.Interpretations {
		switch rule.Type {
		case "source_node":
			if rule.NodeType == "" {
				return Pipeline{}, fmt.Errorf("interpretation %d: source_node requires node_type", i)
			}
			if len(rule.Key) == 0 {
				return Pipeline{}, fmt.Errorf("interpretation %d: source_node requires key", i)
			}
		case "relationship":
			if rule.RelationshipType == "" {
				return Pipeline{}, fmt.Errorf("interpretation %d: relationship requires relationship_type", i)
			}
			if rule.FromNode.NodeType == "" || len(rule.FromNode.Key) == 0 {
				return Pipeline{}, fmt.Errorf("interpretation %d: relationship requires from_node type and key", i)
			}
			if rule.ToNode.NodeType == "" || len(rule.ToNode.Key) == 0 {
				return Pipeline{}, fmt.Errorf("interpretation %d: relationship requires to_node type and key", i)
			}
		default:
			return Pipeline{}, fmt.Errorf("interpretation %d: unknown type %q", i, rule.Type)
		}
	}
	return p, nil
}
