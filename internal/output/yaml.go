package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/hvconn/internal/inventory"
)

// YAMLFormatter formats results as YAML.
type YAMLFormatter struct{}

// FormatHost formats a host summary as YAML.
func (f *YAMLFormatter) FormatHost(host *inventory.HostSummary) (string, error) {
	data, err := yaml.Marshal(host)
	if err != nil {
		return "", fmt.Errorf("failed to marshal host to YAML: %w", err)
	}

	return string(data), nil
}

// FormatDomain formats a single domain as YAML.
func (f *YAMLFormatter) FormatDomain(row inventory.DomainRow) (string, error) {
	data, err := yaml.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("failed to marshal domain %s to YAML: %w", row.Name, err)
	}

	return string(data), nil
}

// FormatDomainList formats domains as a YAML stream (multiple documents
// separated by ---).
func (f *YAMLFormatter) FormatDomainList(rows []inventory.DomainRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	var buf bytes.Buffer

	for i, row := range rows {
		data, err := yaml.Marshal(row)
		if err != nil {
			return "", fmt.Errorf("failed to marshal domain %s to YAML: %w", row.Name, err)
		}

		// Add document separator between domains (but not before the first one)
		if i > 0 {
			buf.WriteString("---\n")
		}

		buf.Write(data)
	}

	return buf.String(), nil
}
