package gen

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/broady/surface/surfacegen/typescript"
)

func TestClientConfig(t *testing.T) {
	tests := []struct {
		name                 string
		positional, comments bool
		methodCase           string
		want                 typescript.ClientConfig
	}{
		{"defaults", false, false, "", typescript.ClientConfig{ClassName: "Api"}},
		{"positional", true, false, "", typescript.ClientConfig{ClassName: "Api", ParamEncoding: typescript.PayloadPositional}},
		{"camel", false, true, "camel", typescript.ClientConfig{ClassName: "Api", MethodCase: "camel", EmitComments: true}},
		{"pascal", false, false, "pascal", typescript.ClientConfig{ClassName: "Api", MethodCase: "pascal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClientConfig("Api", tt.positional, tt.methodCase, tt.comments); got != tt.want {
				t.Errorf("ClientConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCmd_MethodCase(t *testing.T) {
	tests := []struct {
		name string
		cmd  Cmd
		want string
	}{
		{"default", Cmd{Case: "preserve"}, "preserve"},
		{"case flag", Cmd{Case: "snake"}, "snake"},
		{"camel shorthand", Cmd{Case: "preserve", Camel: true}, "camel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.methodCase(); got != tt.want {
				t.Errorf("methodCase() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCmd_Run(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	cmd := &Cmd{Out: dir, File: "client.ts", Positional: true, Schemas: true, stdout: &out}

	if err := cmd.Run(slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	client, err := os.ReadFile(filepath.Join(dir, "client.ts"))
	if err != nil {
		t.Fatalf("read client: %v", err)
	}
	if !strings.Contains(string(client), `return await this.json_transport("get_config", [account_id, key]);`) {
		t.Errorf("client.ts does not use positional payloads:\n%s", client)
	}
	if _, err := os.Stat(filepath.Join(dir, "schemas.json")); err != nil {
		t.Errorf("schemas.json not written: %v", err)
	}
	if !strings.Contains(out.String(), "✓ Wrote") {
		t.Errorf("Run() output = %q", out.String())
	}
}
