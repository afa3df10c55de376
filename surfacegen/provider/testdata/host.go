// Package testdata contains a host type for the source provider tests.
package testdata

import (
	"context"
	"time"
)

// Contact is a known address.
type Contact struct {
	ID          uint32     `json:"id"`
	DisplayName string     `json:"display_name"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
}

// Status is the state of a contact.
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

func (Status) EnumValues() []any { return []any{StatusActive, StatusBlocked} }

// Account is a tagged union described at runtime.
type Account struct{}

func (Account) SurfaceType() any { return nil }

type Host struct{}

// SetConfig stores a config value.
//
// Deprecated: use BatchSetConfig.
func (h *Host) SetConfig(ctx context.Context, accountID uint32, key string, value *string) error {
	return nil
}

// AddAccount creates an account.
func (h *Host) AddAccount(ctx context.Context) (uint32, error) { return 0, nil }

func (h *Host) GetContacts(ctx context.Context, accountID uint32) ([]Contact, error) {
	return nil, nil
}

func (h *Host) ContactStatus(ctx context.Context, contactID uint32) (Status, error) {
	return StatusActive, nil
}

func (h *Host) GetAccount(ctx context.Context, accountID uint32) (Account, error) {
	return Account{}, nil
}

func (h *Host) ContactsByID(ctx context.Context, ids []uint32) (map[uint32]Contact, error) {
	return nil, nil
}

func (h *Host) Sync() error { return nil }

func (h *Host) helper() {}

// Other is not part of the surface.
type Other struct{}

func (Other) Ignored(ctx context.Context) {}
