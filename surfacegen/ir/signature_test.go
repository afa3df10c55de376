package ir

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSignature(t *testing.T) {
	contact := Named("Contact", "example.com/api", &StructShape{})

	tests := []struct {
		name string
		td   TypeDescriptor
		want string
	}{
		{"primitive", Uint(32), "uint32"},
		{"custom leaf", contact, "example.com/api.Contact"},
		{"list", List(contact), "list<example.com/api.Contact>"},
		{"optional", Optional(String()), "optional<string>"},
		{"map", Map(Uint(32), contact), "map<uint32,example.com/api.Contact>"},
		{"fallible", Fallible(Optional(String())), "fallible<optional<string>>"},
		{"nested", List(List(Bool())), "list<list<bool>>"},
		{"nil", nil, "?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Signature(tt.td); got != tt.want {
				t.Errorf("Signature() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSignature_StructuralEquality(t *testing.T) {
	a := List(Named("Contact", "", &StructShape{}))
	b := List(Named("Contact", "", &StructShape{Fields: []FieldDescriptor{{Name: "ID", Type: Uint(32)}}}))
	if Signature(a) != Signature(b) {
		t.Errorf("two occurrences of the same logical type must collide: %q vs %q", Signature(a), Signature(b))
	}

	c := List(Named("Chat", "", &StructShape{}))
	if Signature(a) == Signature(c) {
		t.Errorf("different leaves must not collide: %q", Signature(a))
	}
}

func TestMarshalJSON_KindDiscriminator(t *testing.T) {
	account := Named("Account", "", &UnionShape{
		Tag: "type",
		Variants: []UnionVariant{
			{Name: "Unconfigured", Fields: []FieldDescriptor{{Name: "ID", JSONName: "id", Type: Uint(32)}}},
		},
	})

	tests := []struct {
		name string
		td   TypeDescriptor
		want []string
	}{
		{"primitive leaf", String(), []string{`"kind":"leaf"`, `"primitiveKind":"String"`}},
		{"list", List(Int(64)), []string{`"kind":"list"`, `"bitSize":64`}},
		{"optional", Optional(Bool()), []string{`"kind":"optional"`, `"inner"`}},
		{"map", Map(String(), Float(64)), []string{`"kind":"map"`, `"key"`, `"value"`}},
		{"fallible", Fallible(Void()), []string{`"kind":"fallible"`, `"primitiveKind":"Void"`}},
		{"union", account, []string{`"kind":"union"`, `"tag":"type"`, `"name":"Unconfigured"`, `"name":"id"`}},
		{"enum", Named("Color", "", &EnumShape{Members: []EnumMember{{Name: "Red", Value: "red"}}}), []string{`"kind":"enum"`, `"value":"red"`}},
		{"alias", Named("Email", "", &AliasShape{Underlying: String()}), []string{`"kind":"alias"`, `"underlying"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.td)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(data), w) {
					t.Errorf("Marshal() = %s, missing %s", data, w)
				}
			}
		})
	}
}

func TestMethodContract_MarshalJSON(t *testing.T) {
	c := MethodContract{
		Name:     "get_config",
		Async:    true,
		Params:   []Param{{Name: "key", Type: String()}},
		Return:   Optional(String()),
		Fallible: true,
	}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, w := range []string{`"name":"get_config"`, `"async":true`, `"fallible":true`, `"name":"key"`} {
		if !strings.Contains(string(data), w) {
			t.Errorf("Marshal() = %s, missing %s", data, w)
		}
	}
}
