// Package recipients parses recipient lists from manual text entry or CSV
// uploads and normalizes them for sending.
package recipients

import (
	"regexp"
	"strings"
)

// addressPattern is the basic shape a recipient must have: local@domain.tld
// with no whitespace or second @ on either side. Deliverability beyond that
// is the provider's problem.
var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// csvAddressPattern finds email-shaped tokens anywhere in a CSV body, so the
// address column's position and the presence of headers do not matter.
var csvAddressPattern = regexp.MustCompile(`[^\s@,;"']+@[^\s@,;"']+`)

// ParseList splits manually entered recipient text on commas, semicolons and
// whitespace.
func ParseList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r' || r == '\t' || r == ' '
	})
}

// ScanCSV extracts every email-shaped token from an uploaded CSV body.
func ScanCSV(data []byte) []string {
	return csvAddressPattern.FindAllString(string(data), -1)
}

// Normalize trims each raw recipient, drops empty strings and anything that
// does not look like an email address, and deduplicates case-insensitively
// while preserving first-seen order.
func Normalize(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))

	for _, r := range raw {
		addr := strings.TrimSpace(r)
		if addr == "" || !addressPattern.MatchString(addr) {
			continue
		}
		key := strings.ToLower(addr)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr)
	}

	return out
}
