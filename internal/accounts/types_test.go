package accounts

import (
	"encoding/json"
	"testing"
)

func TestAccount_JSON(t *testing.T) {
	name := "Alice"
	tests := []struct {
		name    string
		account Account
		want    string
	}{
		{
			name:    "unconfigured",
			account: Account{ID: 3},
			want:    `{"type":"Unconfigured","id":3}`,
		},
		{
			name:    "configured",
			account: Account{ID: 1, Configured: true, DisplayName: &name, Color: "#112233"},
			want:    `{"type":"Configured","id":1,"display_name":"Alice","addr":null,"profile_image":null,"color":"#112233"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.account)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
			var back Account
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if back.ID != tt.account.ID || back.Configured != tt.account.Configured {
				t.Errorf("Unmarshal() = %+v, want %+v", back, tt.account)
			}
		})
	}

	var a Account
	if err := json.Unmarshal([]byte(`{"type":"Legacy","id":1}`), &a); err == nil {
		t.Error("Unmarshal() of unknown variant should fail")
	}
}

func TestProviderStatus_String(t *testing.T) {
	tests := []struct {
		s    ProviderStatus
		want string
	}{
		{ProviderOK, "Ok"},
		{ProviderBroken, "Broken"},
		{ProviderStatus(9), "ProviderStatus(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestColorFor(t *testing.T) {
	if colorFor("Bob@Example.org") != colorFor("bob@example.org") {
		t.Error("colorFor() should ignore case")
	}
	if got := colorFor("bob@example.org"); len(got) != 7 || got[0] != '#' {
		t.Errorf("colorFor() = %q, want #rrggbb", got)
	}
}
