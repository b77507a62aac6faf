// Package utils holds small helpers shared by the server, config and handlers.
package utils

import "strings"

// ParseCSV splits a comma-separated list (broker addresses, allowed origins) and
// returns the trimmed non-empty values, or nil when there are none.
func ParseCSV(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
