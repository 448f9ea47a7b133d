package metrics

import "strings"

// normalizeLabel keeps label cardinality bounded to known values; blanks become "unknown".
func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
