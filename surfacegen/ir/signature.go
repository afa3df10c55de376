package ir

import "strings"

// Signature returns the canonical signature of td. It is derived
// structurally, so two occurrences of the same logical type always produce
// equal strings and different types never do (given distinct leaf names).
//
// Leaves use their package-qualified name. Containers compose their
// children: list<S>, optional<S>, map<K,V>, fallible<S>.
func Signature(td TypeDescriptor) string {
	var b strings.Builder
	writeSignature(&b, td)
	return b.String()
}

func writeSignature(b *strings.Builder, td TypeDescriptor) {
	switch t := td.(type) {
	case *LeafDescriptor:
		b.WriteString(t.Name.String())
	case *ListDescriptor:
		b.WriteString("list<")
		writeSignature(b, t.Element)
		b.WriteString(">")
	case *OptionalDescriptor:
		b.WriteString("optional<")
		writeSignature(b, t.Inner)
		b.WriteString(">")
	case *MapDescriptor:
		b.WriteString("map<")
		writeSignature(b, t.Key)
		b.WriteString(",")
		writeSignature(b, t.Value)
		b.WriteString(">")
	case *FallibleDescriptor:
		b.WriteString("fallible<")
		writeSignature(b, t.Success)
		b.WriteString(">")
	default:
		b.WriteString("?")
	}
}
