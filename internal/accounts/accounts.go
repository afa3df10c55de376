// Package accounts is a demo host: a multi-account mail client backend
// whose methods are served by a surface.App and described to clients by
// surfacegen.
package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Known configuration keys. Keys starting with UIConfigPrefix are free-form.
const (
	KeyAddr        = "addr"
	KeyMailPw      = "mail_pw"
	KeyDisplayName = "displayname"
	KeySelfAvatar  = "selfavatar"
	KeySelfStatus  = "selfstatus"
	KeyMailServer  = "mail_server"
	KeyMailPort    = "mail_port"
	KeyMailUser    = "mail_user"
	KeySendServer  = "send_server"
	KeySendPort    = "send_port"
	KeySendUser    = "send_user"
	KeyConfigured  = "configured"

	UIConfigPrefix = "ui."
)

var knownKeys = map[string]bool{
	KeyAddr: true, KeyMailPw: true, KeyDisplayName: true, KeySelfAvatar: true,
	KeySelfStatus: true, KeyMailServer: true, KeyMailPort: true, KeyMailUser: true,
	KeySendServer: true, KeySendPort: true, KeySendUser: true, KeyConfigured: true,
}

// secretKeys are kept in Credentials instead of the store.
var secretKeys = map[string]bool{KeyMailPw: true}

// Errors returned by Manager operations.
var (
	ErrNoAccount    = errors.New("account not found")
	ErrUnknownKey   = errors.New("unknown key")
	ErrInvalidEmail = errors.New("provided email address is not a valid email address")
	ErrMissingKey   = errors.New("missing required config")
)

var emailValidator = validator.New()

// Manager owns the accounts. Readers share its lock and writers hold it
// exclusively.
type Manager struct {
	mu     sync.RWMutex
	store  Store
	creds  Credentials
	logger *slog.Logger
	now    func() time.Time

	ongoingMu sync.Mutex
	ongoing   map[uint32]*ongoing
}

type ongoing struct {
	cancel context.CancelFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithCredentials sets the secret storage. The default keeps secrets in the
// store.
func WithCredentials(c Credentials) Option {
	return func(m *Manager) { m.creds = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock sets the clock used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New returns a Manager over store.
func New(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
		ongoing: make(map[uint32]*ongoing),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.creds == nil {
		m.creds = storeCredentials{store: store}
	}
	return m
}

// Close closes the store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// requireAccount must be called with m.mu held.
func (m *Manager) requireAccount(ctx context.Context, id uint32) error {
	ok, err := m.store.AccountExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(ErrNoAccount, "account with id %d", id)
	}
	return nil
}

// --- misc ---

// CheckEmailValidity reports whether email looks like a mail address.
func (m *Manager) CheckEmailValidity(ctx context.Context, email string) bool {
	return validEmail(email)
}

func validEmail(email string) bool {
	return emailValidator.Var(email, "required,email") == nil
}

// GetProviderInfo returns what is known about the provider of email.
func (m *Manager) GetProviderInfo(ctx context.Context, email string) *ProviderInfo {
	domain := email
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		domain = email[i+1:]
	}
	info, ok := providerDB[strings.ToLower(domain)]
	if !ok {
		return nil
	}
	return &info
}

// --- account management ---

// AddAccount creates an unconfigured account and selects it.
func (m *Manager) AddAccount(ctx context.Context) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.store.CreateAccount(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "create account")
	}
	if err := m.store.SetSelectedAccount(ctx, id); err != nil {
		return 0, errors.Wrap(err, "select new account")
	}
	m.logger.Info("account added", slog.Uint64("account", uint64(id)))
	return id, nil
}

// RemoveAccount deletes an account with its secrets. If it was selected,
// the lowest remaining account is selected instead.
func (m *Manager) RemoveAccount(ctx context.Context, accountID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return err
	}
	m.stopOngoing(accountID)
	for key := range secretKeys {
		if err := m.creds.Delete(accountID, key); err != nil {
			return err
		}
	}
	selected, _, err := m.store.SelectedAccount(ctx)
	if err != nil {
		return err
	}
	if err := m.store.DeleteAccount(ctx, accountID); err != nil {
		return errors.Wrapf(err, "remove account %d", accountID)
	}
	if selected == accountID {
		ids, err := m.store.AccountIDs(ctx)
		if err != nil {
			return err
		}
		next := uint32(0)
		if len(ids) > 0 {
			next = ids[0]
		}
		if err := m.store.SetSelectedAccount(ctx, next); err != nil {
			return err
		}
	}
	m.logger.Info("account removed", slog.Uint64("account", uint64(accountID)))
	return nil
}

// GetAllAccountIDs returns every account ID in ascending order.
func (m *Manager) GetAllAccountIDs(ctx context.Context) []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids, err := m.store.AccountIDs(ctx)
	if err != nil {
		m.logger.Error("list accounts", slog.Any("error", err))
		return []uint32{}
	}
	return ids
}

// GetAccountInfo describes one account.
func (m *Manager) GetAccountInfo(ctx context.Context, accountID uint32) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return Account{}, err
	}
	return m.account(ctx, accountID)
}

// GetAllAccounts describes every account. An account that disappears while
// the list is built is logged and skipped.
func (m *Manager) GetAllAccounts(ctx context.Context) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids, err := m.store.AccountIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(ids))
	for _, id := range ids {
		a, err := m.account(ctx, id)
		if errors.Is(err, ErrNotFound) {
			m.logger.Warn("account vanished while listing", slog.Uint64("account", uint64(id)))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *Manager) account(ctx context.Context, id uint32) (Account, error) {
	configured, err := m.isConfigured(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if !configured {
		return Account{ID: id}, nil
	}
	a := Account{ID: id, Configured: true}
	if a.DisplayName, err = m.config(ctx, id, KeyDisplayName); err != nil {
		return Account{}, err
	}
	if a.Addr, err = m.config(ctx, id, KeyAddr); err != nil {
		return Account{}, err
	}
	if a.ProfileImage, err = m.config(ctx, id, KeySelfAvatar); err != nil {
		return Account{}, err
	}
	if a.Addr != nil {
		a.Color = colorFor(*a.Addr)
	}
	return a, nil
}

// SelectAccount selects an account.
func (m *Manager) SelectAccount(ctx context.Context, id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAccount(ctx, id); err != nil {
		return err
	}
	return m.store.SetSelectedAccount(ctx, id)
}

// GetSelectedAccountID returns the selected account, or nil if none is.
func (m *Manager) GetSelectedAccountID(ctx context.Context) *uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok, err := m.store.SelectedAccount(ctx)
	if err != nil {
		m.logger.Error("selected account", slog.Any("error", err))
		return nil
	}
	if !ok {
		return nil
	}
	return &id
}

// --- per account ---

// IsConfigured reports whether Configure has succeeded for the account.
func (m *Manager) IsConfigured(ctx context.Context, accountID uint32) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return false, err
	}
	return m.isConfigured(ctx, accountID)
}

func (m *Manager) isConfigured(ctx context.Context, id uint32) (bool, error) {
	v, _, err := m.store.GetConfig(ctx, id, KeyConfigured)
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

// GetInfo returns diagnostic facts about an account.
func (m *Manager) GetInfo(ctx context.Context, accountID uint32) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return nil, err
	}
	configured, err := m.isConfigured(ctx, accountID)
	if err != nil {
		return nil, err
	}
	contacts, err := m.store.Contacts(ctx, accountID)
	if err != nil {
		return nil, err
	}
	chats, err := m.store.CountChats(ctx, accountID)
	if err != nil {
		return nil, err
	}
	messages, err := m.store.CountMessages(ctx, accountID)
	if err != nil {
		return nil, err
	}
	addr, err := m.config(ctx, accountID, KeyAddr)
	if err != nil {
		return nil, err
	}

	info := map[string]string{
		"id":          strconv.FormatUint(uint64(accountID), 10),
		"configured":  strconv.FormatBool(configured),
		"contacts":    strconv.Itoa(len(contacts)),
		"chats":       strconv.Itoa(chats),
		"messages":    strconv.Itoa(messages),
		"credentials": m.creds.Backend(),
	}
	if addr != nil {
		info["addr"] = *addr
	}
	return info, nil
}

// SetConfig sets or, with a nil value, clears a config key.
func (m *Manager) SetConfig(ctx context.Context, accountID uint32, key string, value *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return err
	}
	return m.setConfig(ctx, accountID, key, value)
}

// BatchSetConfig sets several keys in key order, stopping at the first
// failure.
func (m *Manager) BatchSetConfig(ctx context.Context, accountID uint32, config map[string]*string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return err
	}
	for _, key := range slices.Sorted(maps.Keys(config)) {
		value := config[key]
		if err := m.setConfig(ctx, accountID, key, value); err != nil {
			return errors.Wrapf(err, "can't set %s to %s", key, describe(value))
		}
	}
	return nil
}

func describe(v *string) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("Some(%q)", *v)
}

func (m *Manager) setConfig(ctx context.Context, id uint32, key string, value *string) error {
	if !strings.HasPrefix(key, UIConfigPrefix) && !knownKeys[key] {
		return errors.Wrapf(ErrUnknownKey, "%q", key)
	}
	if secretKeys[key] {
		if value == nil {
			return m.creds.Delete(id, key)
		}
		return m.creds.Set(id, key, *value)
	}
	return m.store.SetConfig(ctx, id, key, value)
}

// GetConfig returns a config value, or nil when it is unset.
func (m *Manager) GetConfig(ctx context.Context, accountID uint32, key string) (*string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return m.getConfig(ctx, accountID, key)
}

// BatchGetConfig returns several config values keyed by name.
func (m *Manager) BatchGetConfig(ctx context.Context, accountID uint32, keys []string) (map[string]*string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return nil, err
	}
	out := make(map[string]*string, len(keys))
	for _, key := range keys {
		v, err := m.getConfig(ctx, accountID, key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func (m *Manager) getConfig(ctx context.Context, id uint32, key string) (*string, error) {
	if !strings.HasPrefix(key, UIConfigPrefix) && !knownKeys[key] {
		return nil, errors.Wrapf(ErrUnknownKey, "%q", key)
	}
	if secretKeys[key] {
		v, ok, err := m.creds.Get(id, key)
		if err != nil || !ok {
			return nil, err
		}
		return &v, nil
	}
	return m.config(ctx, id, key)
}

func (m *Manager) config(ctx context.Context, id uint32, key string) (*string, error) {
	v, ok, err := m.store.GetConfig(ctx, id, key)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// Configure checks the credentials set with SetConfig and marks the
// account configured. StopOngoingProcess cancels it.
func (m *Manager) Configure(ctx context.Context, accountID uint32) error {
	ctx, done := m.beginOngoing(ctx, accountID)
	defer done()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return err
	}
	addr, err := m.config(ctx, accountID, KeyAddr)
	if err != nil {
		return err
	}
	if addr == nil || *addr == "" {
		return errors.Wrapf(ErrMissingKey, "%s", KeyAddr)
	}
	if !validEmail(*addr) {
		return errors.Wrapf(ErrInvalidEmail, "%s", *addr)
	}
	if _, ok, err := m.creds.Get(accountID, KeyMailPw); err != nil {
		return err
	} else if !ok {
		return errors.Wrapf(ErrMissingKey, "%s", KeyMailPw)
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "configure")
	}

	configured := "1"
	if err := m.store.SetConfig(ctx, accountID, KeyConfigured, &configured); err != nil {
		return err
	}
	m.logger.Info("account configured",
		slog.Uint64("account", uint64(accountID)),
		slog.String("addr", *addr))
	return nil
}

// StopOngoingProcess cancels a running Configure for the account. It does
// not take the manager lock, which Configure holds.
func (m *Manager) StopOngoingProcess(ctx context.Context, accountID uint32) error {
	ok, err := m.store.AccountExists(ctx, accountID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(ErrNoAccount, "account with id %d", accountID)
	}
	m.stopOngoing(accountID)
	return nil
}

// beginOngoing registers a cancellable process for the account, replacing
// and cancelling any previous one.
func (m *Manager) beginOngoing(ctx context.Context, id uint32) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	p := &ongoing{cancel: cancel}

	m.ongoingMu.Lock()
	if prev, ok := m.ongoing[id]; ok {
		prev.cancel()
	}
	m.ongoing[id] = p
	m.ongoingMu.Unlock()

	return ctx, func() {
		cancel()
		m.ongoingMu.Lock()
		defer m.ongoingMu.Unlock()
		if m.ongoing[id] == p {
			delete(m.ongoing, id)
		}
	}
}

func (m *Manager) stopOngoing(id uint32) {
	m.ongoingMu.Lock()
	defer m.ongoingMu.Unlock()
	if p, ok := m.ongoing[id]; ok {
		p.cancel()
	}
}
