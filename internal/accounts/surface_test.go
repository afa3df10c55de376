package accounts_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/surface"
	"github.com/broady/surface/internal/accounts"
	"github.com/broady/surface/surfacegen"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newApp(t *testing.T) *surface.App {
	t.Helper()
	m := accounts.New(accounts.NewMemoryStore(), accounts.WithLogger(quietLogger()))
	table, err := surface.Bind(m, accounts.Decls())
	require.NoError(t, err)
	return surface.NewApp().WithLogger(quietLogger()).Mount(table)
}

func TestDecls_Bind(t *testing.T) {
	m := accounts.New(accounts.NewMemoryStore())
	table, err := surface.Bind(m, accounts.Decls())
	require.NoError(t, err)

	names := table.Names()
	require.Len(t, names, len(accounts.Decls()))
	assert.Equal(t, "check_email_validity", names[0])
	assert.Equal(t, "message_get_message", names[len(names)-1])
}

func TestDecls_Invoke(t *testing.T) {
	app := newApp(t)
	ctx := context.Background()

	got, envErr := app.Invoke(ctx, "add_account", nil)
	require.Nil(t, envErr)
	assert.Equal(t, uint32(1), got)

	got, envErr = app.Invoke(ctx, "get_config", json.RawMessage(`{"account_id":1,"key":"addr"}`))
	require.Nil(t, envErr)
	assert.Nil(t, got)

	_, envErr = app.Invoke(ctx, "set_config", json.RawMessage(`[1,"displayname","Alice"]`))
	require.Nil(t, envErr)
	got, envErr = app.Invoke(ctx, "get_config", json.RawMessage(`[1,"displayname"]`))
	require.Nil(t, envErr)
	require.IsType(t, (*string)(nil), got)
	assert.Equal(t, "Alice", *got.(*string))

	_, envErr = app.Invoke(ctx, "get_account_info", json.RawMessage(`{"account_id":99}`))
	require.NotNil(t, envErr)
	assert.Equal(t, surface.CodeServerError, envErr.Code)
	assert.Equal(t, "account with id 99: account not found", envErr.Message)

	got, envErr = app.Invoke(ctx, "get_all_accounts", nil)
	require.Nil(t, envErr)
	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"Unconfigured","id":1}]`, string(data))
}

func TestDecls_Client(t *testing.T) {
	m := accounts.New(accounts.NewMemoryStore())
	result, err := surfacegen.FromHost(m, accounts.Decls()).WithLogger(quietLogger()).Generate()
	require.NoError(t, err)

	doc := string(result.Document.Text)
	assert.Equal(t, 1, strings.Count(doc, "export type Contact = {"), "Contact is defined once")
	assert.Contains(t, doc, "Promise<Contact>")
	assert.Contains(t, doc, "Promise<Contact[]>")
	assert.Contains(t, doc, "Promise<Record<string, Contact>>")
	assert.Contains(t, doc, "export type Account = {\n  type: \"Configured\";\n  id: number;\n")
	assert.Contains(t, doc, "public async get_provider_info(email: string):Promise<ProviderInfo | null>{")
	assert.Contains(t, doc, "public async add_account():Promise<number>{")
}
