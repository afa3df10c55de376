package typescript

import (
	"strconv"
	"strings"
	"unicode"
)

// reserved holds the words that cannot name a stub parameter. Class bodies
// are strict-mode code, so the strict-mode future reserved words and
// arguments/eval are included with the ECMAScript keywords.
var reserved = func() map[string]struct{} {
	const words = `
		break case catch class const continue debugger default delete do
		else enum export extends false finally for function if import in
		instanceof new null return super switch this throw true try type
		typeof var void while with
		implements interface let package private protected public static yield
		arguments await eval`
	m := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		m[w] = struct{}{}
	}
	return m
}()

func isReserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

// identRune reports whether r may appear in an identifier. Letters outside
// ASCII are allowed.
func identRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// needsQuoting reports whether an object key must be a string literal.
func needsQuoting(key string) bool {
	return key == "" || startsWithDigit(key) ||
		strings.IndexFunc(key, func(r rune) bool { return !identRune(r) }) >= 0
}

// propertyName renders an object key. Keywords are valid keys.
func propertyName(key string) string {
	if needsQuoting(key) {
		return strconv.Quote(key)
	}
	return key
}

// sanitizeIdentifier maps a wire or Go name onto a binding name: invalid
// runes become underscores, a leading digit gets an underscore prefix and
// reserved words get an underscore suffix.
func sanitizeIdentifier(name string) string {
	ident := strings.Map(func(r rune) rune {
		if identRune(r) {
			return r
		}
		return '_'
	}, name)
	switch {
	case ident == "":
		return "_"
	case startsWithDigit(ident):
		ident = "_" + ident
	case isReserved(ident):
		ident += "_"
	}
	return ident
}
