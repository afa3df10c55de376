package typescript

import (
	"strings"
	"unicode"
)

// splitWords splits a snake_case or kebab-case name into its parts.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
}

func isUpper(s string) bool {
	return strings.ToUpper(s) == s && strings.ToLower(s) != s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// toCamelCase converts my_field and MyField to myField.
func toCamelCase(s string) string {
	if s == "" {
		return ""
	}
	words := splitWords(s)
	if len(words) == 1 && !strings.ContainsAny(s, "_-") {
		if isUpper(s) {
			return strings.ToLower(s)
		}
		r := []rune(s)
		r[0] = unicode.ToLower(r[0])
		return string(r)
	}

	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			b.WriteString(strings.ToLower(w))
			continue
		}
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// toPascalCase converts my_field and myField to MyField.
func toPascalCase(s string) string {
	if s == "" {
		return ""
	}
	words := splitWords(s)
	if len(words) == 1 && !strings.ContainsAny(s, "_-") {
		r := []rune(s)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	}

	var b strings.Builder
	for _, w := range words {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// toSnakeCase converts MyField to my_field.
func toSnakeCase(s string) string {
	return toDelimited(s, '_')
}

func toDelimited(s string, sep rune) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteRune(sep)
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// applyCaseTransform converts a name to the given method case. An empty
// style or "preserve" returns the name unchanged.
func applyCaseTransform(name, style string) string {
	switch style {
	case "camel":
		return toCamelCase(name)
	case "pascal":
		return toPascalCase(name)
	case "snake":
		return toSnakeCase(name)
	default:
		return name
	}
}
