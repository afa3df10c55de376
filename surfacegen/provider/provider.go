// Package provider produces raw method declarations for the contract
// extractor. Three providers are available:
//
//   - ReflectionProvider reads a live host value and binds every method, so
//     its output can back a dispatch table.
//   - SourceProvider reads Go source with go/packages, recovering parameter
//     names, declaration order and doc comments.
//   - LoadContractFile reads a YAML contract description with no Go code
//     behind it.
package provider

import (
	"strings"
	"unicode"

	"github.com/broady/surface/surfacegen/ir"
)

// docFromText parses a Go doc comment into Documentation. The first
// non-empty line is the summary; a "Deprecated:" paragraph is split out.
func docFromText(text string) ir.Documentation {
	text = strings.TrimSpace(text)
	if text == "" {
		return ir.Documentation{}
	}

	lines := strings.Split(text, "\n")
	var deprecated *string
	for i, line := range lines {
		if strings.HasPrefix(line, "Deprecated:") {
			msg := strings.TrimSpace(strings.TrimPrefix(line, "Deprecated:"))
			deprecated = &msg
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}

	var summary string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			summary = trimmed
			break
		}
	}

	return ir.Documentation{
		Summary:    summary,
		Body:       strings.TrimSpace(strings.Join(lines, "\n")),
		Deprecated: deprecated,
	}
}

// parseJSONTag parses a json struct tag into the property name and flags.
func parseJSONTag(tag, fieldName string) (jsonName string, optional, skip, stringEncoded bool) {
	if tag == "" {
		return fieldName, false, false, false
	}

	parts := strings.Split(tag, ",")
	jsonName = parts[0]

	// "-" alone skips the field; "-," names it "-".
	if jsonName == "-" && len(parts) == 1 {
		return "", false, true, false
	}
	if jsonName == "" {
		jsonName = fieldName
	}

	for _, opt := range parts[1:] {
		switch opt {
		case "omitempty", "omitzero":
			optional = true
		case "string":
			stringEncoded = true
		}
	}
	return jsonName, optional, false, stringEncoded
}

// SnakeCase converts a Go method name to a wire name:
// AddAccount becomes add_account and GetAllAccountIDs becomes
// get_all_account_ids.
func SnakeCase(name string) string {
	rs := []rune(name)
	n := len(rs)

	var b strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) && i > 0 {
			prev := rs[i-1]
			switch {
			case unicode.IsLower(prev) || unicode.IsDigit(prev):
				b.WriteByte('_')
			case unicode.IsUpper(prev) && i+1 < n && unicode.IsLower(rs[i+1]):
				// Keep a plural "s" on an acronym: IDs, URLs.
				pluralAcronym := rs[i+1] == 's' && (i+2 == n || unicode.IsUpper(rs[i+2]))
				if !pluralAcronym {
					b.WriteByte('_')
				}
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
