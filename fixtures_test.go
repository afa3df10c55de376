package surface

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/broady/surface/surfacegen/provider"
)

type Contact struct {
	ID          uint32 `json:"id"`
	DisplayName string `json:"display_name" validate:"required"`
}

// testHost is a small host with one method per dispatch behavior under
// test.
type testHost struct {
	mu     sync.RWMutex
	fail   bool
	config map[string]string

	started   chan struct{}
	release   chan struct{}
	completed atomic.Int32
	waitErr   atomic.Value
}

func newTestHost() *testHost {
	return &testHost{
		config:  map[string]string{"displayname": "alice"},
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (h *testHost) AddAccount(ctx context.Context) (uint32, error) {
	if h.fail {
		return 0, errors.New("no space left")
	}
	return 7, nil
}

func (h *testHost) GetConfig(ctx context.Context, accountID uint32, key string) (*string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.config[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (h *testHost) Echo(ctx context.Context, numbers []float64) []float64 {
	return numbers
}

func (h *testHost) Sub(ctx context.Context, a, b int) int {
	return a - b
}

func (h *testHost) Ping(ctx context.Context) {
	if call, ok := FromContext(ctx); ok {
		call.SetHeader("X-Pinged", call.Method())
	}
}

func (h *testHost) Boom(ctx context.Context) error {
	panic("boom")
}

func (h *testHost) SaveContact(ctx context.Context, c Contact) (Contact, error) {
	return c, nil
}

func (h *testHost) WhoAmI(ctx context.Context) string {
	id, _ := ConnIDFromContext(ctx)
	return id
}

// Wait blocks until release is closed.
func (h *testHost) Wait(ctx context.Context) string {
	h.started <- struct{}{}
	<-h.release
	h.waitErr.Store(errorString(ctx.Err()))
	h.completed.Add(1)
	return "done"
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func testDecls() []provider.MethodDecl {
	return []provider.MethodDecl{
		{Name: "add_account", Func: (*testHost).AddAccount},
		{Name: "get_config", Func: (*testHost).GetConfig, ParamNames: []string{"account_id", "key"}},
		{Name: "echo", Func: (*testHost).Echo, ParamNames: []string{"numbers"}},
		{Name: "sub", Func: (*testHost).Sub, ParamNames: []string{"a", "b"}},
		{Name: "ping", Func: (*testHost).Ping},
		{Name: "boom", Func: (*testHost).Boom},
		{Name: "save_contact", Func: (*testHost).SaveContact, ParamNames: []string{"contact"}},
		{Name: "whoami", Func: (*testHost).WhoAmI},
		{Name: "wait", Func: (*testHost).Wait},
	}
}

func newTestTable(h *testHost) *Table {
	return MustBind(h, testDecls())
}

func newTestApp(h *testHost) *App {
	return NewApp().WithLogger(quietLogger()).Mount(newTestTable(h))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
