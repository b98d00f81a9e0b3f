package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/hvconn/internal/inventory"
)

// JSONFormatter formats results as JSON.
type JSONFormatter struct{}

// FormatHost formats a host summary as a JSON object.
func (f *JSONFormatter) FormatHost(host *inventory.HostSummary) (string, error) {
	return marshalJSON(host, "host")
}

// FormatDomain formats a single domain as a JSON object.
func (f *JSONFormatter) FormatDomain(row inventory.DomainRow) (string, error) {
	return marshalJSON(row, "domain")
}

// FormatDomainList formats domains as a JSON array.
func (f *JSONFormatter) FormatDomainList(rows []inventory.DomainRow) (string, error) {
	if len(rows) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(rows, "domains")
}

func marshalJSON(v any, what string) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to JSON: %w", what, err)
	}

	return string(data) + "\n", nil
}
