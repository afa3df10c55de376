package accounts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keyring service name secrets are filed under.
const DefaultKeyringService = "surface-accounts"

// Credentials stores per-account secrets outside the account store.
type Credentials interface {
	// Get returns the secret for key, or false if none is set.
	Get(account uint32, key string) (string, bool, error)
	Set(account uint32, key, value string) error
	// Delete removes the secret. Deleting a missing secret is not an error.
	Delete(account uint32, key string) error
	// Backend names the storage for diagnostics.
	Backend() string
}

// KeyringCredentials keeps secrets in the OS keyring.
type KeyringCredentials struct {
	service string
}

var _ Credentials = (*KeyringCredentials)(nil)

// NewKeyringCredentials returns keyring credentials filed under service.
func NewKeyringCredentials(service string) *KeyringCredentials {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringCredentials{service: service}
}

func keyringUser(account uint32, key string) string {
	return fmt.Sprintf("account-%d/%s", account, key)
}

// Available reports whether the keyring can be reached. A missing entry
// counts as reachable.
func (k *KeyringCredentials) Available() bool {
	_, err := keyring.Get(k.service, "availability-check")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

func (k *KeyringCredentials) Get(account uint32, key string) (string, bool, error) {
	v, err := keyring.Get(k.service, keyringUser(account, key))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to load %s from system keyring", key)
	}
	return v, true, nil
}

func (k *KeyringCredentials) Set(account uint32, key, value string) error {
	return errors.Wrapf(keyring.Set(k.service, keyringUser(account, key), value),
		"failed to store %s in system keyring", key)
}

func (k *KeyringCredentials) Delete(account uint32, key string) error {
	err := keyring.Delete(k.service, keyringUser(account, key))
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return errors.Wrapf(err, "failed to delete %s from system keyring", key)
}

func (k *KeyringCredentials) Backend() string { return "keyring" }

// storeCredentials files secrets in the account store under a reserved
// prefix. It is the fallback when no keyring is reachable.
type storeCredentials struct {
	store Store
}

const secretPrefix = "secret."

func (s storeCredentials) Get(account uint32, key string) (string, bool, error) {
	return s.store.GetConfig(context.Background(), account, secretPrefix+key)
}

func (s storeCredentials) Set(account uint32, key, value string) error {
	return s.store.SetConfig(context.Background(), account, secretPrefix+key, &value)
}

func (s storeCredentials) Delete(account uint32, key string) error {
	err := s.store.SetConfig(context.Background(), account, secretPrefix+key, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (s storeCredentials) Backend() string { return "store" }

// DefaultCredentials returns keyring credentials when the keyring is
// reachable and store-backed credentials otherwise.
func DefaultCredentials(store Store, logger *slog.Logger) Credentials {
	kc := NewKeyringCredentials(DefaultKeyringService)
	if kc.Available() {
		return kc
	}
	if logger != nil {
		logger.Warn("system keyring unavailable, storing secrets in the account store")
	}
	return storeCredentials{store: store}
}
