package devtools

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"runtime"
	"testing"

	"github.com/broady/surface"
)

func newApp(t *testing.T) *surface.App {
	t.Helper()
	app := surface.NewApp().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := New(app, "v1.2.3").Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return app
}

func TestPing(t *testing.T) {
	app := newApp(t)
	got, envErr := app.Invoke(context.Background(), "ping", nil)
	if envErr != nil {
		t.Fatalf("Invoke(ping) error = %v", envErr)
	}
	if got != (PingResponse{OK: true}) {
		t.Errorf("Invoke(ping) = %v, want {OK:true}", got)
	}
}

func TestGetSystemInfo(t *testing.T) {
	s := New(surface.NewApp(), "v1.2.3")
	info := s.GetSystemInfo(context.Background())

	if info["version"] != "v1.2.3" {
		t.Errorf("version = %q, want %q", info["version"], "v1.2.3")
	}
	if info["go_version"] != runtime.Version() {
		t.Errorf("go_version = %q, want %q", info["go_version"], runtime.Version())
	}
	for _, key := range []string{"goroutines", "num_cpu", "alloc", "sys", "num_gc"} {
		if info[key] == "" {
			t.Errorf("missing %s", key)
		}
	}
}

func TestStatus(t *testing.T) {
	app := newApp(t)
	got, envErr := app.Invoke(context.Background(), "status", json.RawMessage(`{}`))
	if envErr != nil {
		t.Fatalf("Invoke(status) error = %v", envErr)
	}
	status, ok := got.(StatusResponse)
	if !ok {
		t.Fatalf("Invoke(status) = %T, want StatusResponse", got)
	}
	want := []string{"ping", "get_system_info", "status"}
	if !status.OK || len(status.Methods) != len(want) {
		t.Fatalf("Status() = %+v, want methods %v", status, want)
	}
	for i := range want {
		if status.Methods[i] != want[i] {
			t.Errorf("Methods[%d] = %q, want %q", i, status.Methods[i], want[i])
		}
	}
}
