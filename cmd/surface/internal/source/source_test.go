package source

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/broady/surface/internal/accounts"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFlags_Builtin(t *testing.T) {
	var f Flags
	raw, err := f.Methods(context.Background(), quietLogger())
	if err != nil {
		t.Fatalf("Methods() error = %v", err)
	}
	if len(raw) != len(accounts.Decls()) {
		t.Errorf("Methods() returned %d methods, want %d", len(raw), len(accounts.Decls()))
	}
	if raw[0].Name != "check_email_validity" {
		t.Errorf("first method = %q, want check_email_validity", raw[0].Name)
	}
}

func TestFlags_Contract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contract.yaml")
	data := "methods:\n  - name: add_account\n    async: true\n    returns: result<number>\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	f := Flags{Contract: path}
	raw, err := f.Methods(context.Background(), quietLogger())
	if err != nil {
		t.Fatalf("Methods() error = %v", err)
	}
	if len(raw) != 1 || raw[0].Name != "add_account" {
		t.Errorf("Methods() = %+v, want [add_account]", raw)
	}
}

func TestFlags_Errors(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
	}{
		{"package without type", Flags{Package: "./x"}},
		{"type without package", Flags{Type: "Manager"}},
		{"missing contract", Flags{Contract: filepath.Join(t.TempDir(), "absent.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.flags.Methods(context.Background(), quietLogger()); err == nil {
				t.Error("Methods() error = nil, want error")
			}
		})
	}
}
