package accounts

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringCredentials(t *testing.T) {
	keyring.MockInit()
	kc := NewKeyringCredentials("")
	assert.True(t, kc.Available())
	assert.Equal(t, "keyring", kc.Backend())

	_, ok, err := kc.Get(1, KeyMailPw)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kc.Set(1, KeyMailPw, "hunter2"))
	v, ok, err := kc.Get(1, KeyMailPw)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hunter2", v)

	_, ok, err = kc.Get(2, KeyMailPw)
	require.NoError(t, err)
	assert.False(t, ok, "secrets are per account")

	require.NoError(t, kc.Delete(1, KeyMailPw))
	require.NoError(t, kc.Delete(1, KeyMailPw), "deleting a missing secret is not an error")
}

func TestDefaultCredentials(t *testing.T) {
	keyring.MockInit()
	creds := DefaultCredentials(NewMemoryStore(), slog.New(slog.DiscardHandler))
	assert.Equal(t, "keyring", creds.Backend())
}

func TestStoreCredentials(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id, err := store.CreateAccount(ctx)
	require.NoError(t, err)

	creds := storeCredentials{store: store}
	require.NoError(t, creds.Set(id, KeyMailPw, "hunter2"))
	v, ok, err := creds.Get(id, KeyMailPw)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hunter2", v)

	raw, ok, err := store.GetConfig(ctx, id, secretPrefix+KeyMailPw)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hunter2", raw)

	require.NoError(t, creds.Delete(id, KeyMailPw))
	require.NoError(t, creds.Delete(99, KeyMailPw), "missing account has nothing to delete")
}

func TestManager_KeyringCredentials(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	m := New(NewMemoryStore(),
		WithCredentials(NewKeyringCredentials("surface-test")),
		WithLogger(slog.New(slog.DiscardHandler)))

	id, err := m.AddAccount(ctx)
	require.NoError(t, err)
	configure(t, m, id, "alice@example.org")

	v, err := keyring.Get("surface-test", keyringUser(id, KeyMailPw))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)

	require.NoError(t, m.RemoveAccount(ctx, id))
	_, err = keyring.Get("surface-test", keyringUser(id, KeyMailPw))
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}
