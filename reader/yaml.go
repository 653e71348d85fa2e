package reader

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// yamlDocument accepts either a bare list of scenarios or a mapping with a
// scenarios key
type yamlDocument struct {
	Scenarios []map[string]interface{} `yaml:"scenarios"`
}

func readYAML(path string) ([]map[string]interface{}, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil, nil
	}

	var rows []map[string]interface{}
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&rows); err != nil {
			return nil, nil, fmt.Errorf("failed to decode scenarios: %w", err)
		}
	case yaml.MappingNode:
		var doc yamlDocument
		if err := root.Decode(&doc); err != nil {
			return nil, nil, fmt.Errorf("failed to decode scenarios: %w", err)
		}
		rows = doc.Scenarios
	default:
		return nil, nil, fmt.Errorf("%s: expected a list of scenarios", path)
	}

	return rows, columnsOf(rows), nil
}

// columnsOf lists every key used by rows, sorted
func columnsOf(rows []map[string]interface{}) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)
	return columns
}
