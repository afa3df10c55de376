package accounts

import (
	"context"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned by a Store when a record does not exist.
var ErrNotFound = errors.New("not found")

// ContactRecord is a stored contact.
type ContactRecord struct {
	ID       uint32
	Addr     string
	Name     string
	AuthName string
	Status   string
	Blocked  bool
}

// ChatRecord is a stored one-to-one chat.
type ChatRecord struct {
	ID        uint32
	ContactID uint32
	Archived  bool
	Muted     bool
}

// MessageRecord is a stored message.
type MessageRecord struct {
	ID        uint32
	ChatID    uint32
	FromID    uint32
	Text      string
	Timestamp int64
}

// Store persists accounts and their per-account data. Implementations are
// safe for concurrent use. Per-account IDs are allocated by the store and
// never reused within an account.
type Store interface {
	CreateAccount(ctx context.Context) (uint32, error)
	DeleteAccount(ctx context.Context, id uint32) error
	AccountIDs(ctx context.Context) ([]uint32, error)
	AccountExists(ctx context.Context, id uint32) (bool, error)

	// SelectedAccount reports the selected account, if any.
	SelectedAccount(ctx context.Context) (uint32, bool, error)
	// SetSelectedAccount selects id. Zero clears the selection.
	SetSelectedAccount(ctx context.Context, id uint32) error

	GetConfig(ctx context.Context, account uint32, key string) (string, bool, error)
	// SetConfig stores value under key. A nil value deletes the key.
	SetConfig(ctx context.Context, account uint32, key string, value *string) error

	// PutContact inserts c when c.ID is zero and updates it otherwise.
	PutContact(ctx context.Context, account uint32, c ContactRecord) (uint32, error)
	Contact(ctx context.Context, account, id uint32) (ContactRecord, error)
	ContactByAddr(ctx context.Context, account uint32, addr string) (ContactRecord, error)
	// Contacts returns all contacts in ID order.
	Contacts(ctx context.Context, account uint32) ([]ContactRecord, error)

	CreateChat(ctx context.Context, account, contactID uint32) (uint32, error)
	Chat(ctx context.Context, account, id uint32) (ChatRecord, error)
	ChatByContact(ctx context.Context, account, contactID uint32) (ChatRecord, error)
	CountChats(ctx context.Context, account uint32) (int, error)

	AddMessage(ctx context.Context, account uint32, m MessageRecord) (uint32, error)
	Message(ctx context.Context, account, id uint32) (MessageRecord, error)
	CountMessages(ctx context.Context, account uint32) (int, error)

	Close() error
}

type memAccount struct {
	config   map[string]string
	contacts map[uint32]ContactRecord
	chats    map[uint32]ChatRecord
	messages map[uint32]MessageRecord

	lastContact uint32
	lastChat    uint32
	lastMessage uint32
}

// MemoryStore is a Store held in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uint32]*memAccount
	lastID   uint32
	selected uint32
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[uint32]*memAccount)}
}

func (s *MemoryStore) account(id uint32) (*memAccount, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "account %d", id)
	}
	return a, nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	s.accounts[s.lastID] = &memAccount{
		config:      make(map[string]string),
		contacts:    make(map[uint32]ContactRecord),
		chats:       make(map[uint32]ChatRecord),
		messages:    make(map[uint32]MessageRecord),
		lastContact: lastSpecialContactID,
		lastChat:    lastSpecialChatID,
	}
	return s.lastID, nil
}

func (s *MemoryStore) DeleteAccount(ctx context.Context, id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.account(id); err != nil {
		return err
	}
	delete(s.accounts, id)
	if s.selected == id {
		s.selected = 0
	}
	return nil
}

func (s *MemoryStore) AccountIDs(ctx context.Context) ([]uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint32, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) AccountExists(ctx context.Context, id uint32) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[id]
	return ok, nil
}

func (s *MemoryStore) SelectedAccount(ctx context.Context) (uint32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.selected != 0, nil
}

func (s *MemoryStore) SetSelectedAccount(ctx context.Context, id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != 0 {
		if _, err := s.account(id); err != nil {
			return err
		}
	}
	s.selected = id
	return nil
}

func (s *MemoryStore) GetConfig(ctx context.Context, account uint32, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.account(account)
	if err != nil {
		return "", false, err
	}
	v, ok := a.config[key]
	return v, ok, nil
}

func (s *MemoryStore) SetConfig(ctx context.Context, account uint32, key string, value *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.account(account)
	if err != nil {
		return err
	}
	if value == nil {
		delete(a.config, key)
	} else {
		a.config[key] = *value
	}
	return nil
}

func (s *MemoryStore) PutContact(ctx context.Context, account uint32, c ContactRecord) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.account(account)
	if err != nil {
		return 0, err
	}
	if c.ID == 0 {
		a.lastContact++
		c.ID = a.lastContact
	} else if _, ok := a.contacts[c.ID]; !ok {
		return 0, errors.Wrapf(ErrNotFound, "contact %d", c.ID)
	}
	a.contacts[c.ID] = c
	return c.ID, nil
}

func (s *MemoryStore) Contact(ctx context.Context, account, id uint32) (ContactRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.account(account)
	if err != nil {
		return ContactRecord{}, err
	}
	c, ok := a.contacts[id]
	if !ok {
		return ContactRecord{}, errors.Wrapf(ErrNotFound, "contact %d", id)
	}
	return c, nil
}

func (s *MemoryStore) ContactByAddr(ctx context.Context, account uint32, addr string) (ContactRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.account(account)
	if err != nil {
		return ContactRecord{}, err
	}
	for _, c := range a.contacts {
		if c.Addr == addr {
			return c, nil
		}
	}
	return ContactRecord{}, errors.Wrapf(ErrNotFound, "contact %s", addr)
}

func (s *MemoryStore) Contacts(ctx context.Context, account uint32) ([]ContactRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.account(account)
	if err != nil {
		return nil, err
	}
	out := make([]ContactRecord, 0, len(a.contacts))
	for _, c := range a.contacts {
		out = append(out, c)
	}
	slices.SortFunc(out, func(x, y ContactRecord) int { return int(x.ID) - int(y.ID) })
	return out, nil
}

func (s *MemoryStore) CreateChat(ctx context.Context, account, contactID uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.account(account)
	if err != nil {
		return 0, err
	}
	a.lastChat++
	a.chats[a.lastChat] = ChatRecord{ID: a.lastChat, ContactID: contactID}
	return a.lastChat, nil
}

func (s *MemoryStore) Chat(ctx context.Context, account, id uint32) (ChatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.account(account)
	if err != nil {
		return ChatRecord{}, err
	}
	c, ok := a.chats[id]
	if !ok {
		return ChatRecord{}, errors.Wrapf(ErrNotFound, "chat %d", id)
	}
	return c, nil
}

func (s *MemoryStore) ChatByContact(ctx context.Context, account, contactID uint32) (ChatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.account(account)
	if err != nil {
		return ChatRecord{}, err
	}
	for _, c := range a.chats {
		if c.ContactID == contactID {
			return c, nil
		}
	}
	return ChatRecord{}, errors.Wrapf(ErrNotFound, "chat with contact %d", contactID)
}

func (s *MemoryStore) CountChats(ctx context.Context, account uint32) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.account(account)
	if err != nil {
		return 0, err
	}
	return len(a.chats), nil
}

func (s *MemoryStore) AddMessage(ctx context.Context, account uint32, m MessageRecord) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.account(account)
	if err != nil {
		return 0, err
	}
	if _, ok := a.chats[m.ChatID]; !ok {
		return 0, errors.Wrapf(ErrNotFound, "chat %d", m.ChatID)
	}
	a.lastMessage++
	m.ID = a.lastMessage
	a.messages[m.ID] = m
	return m.ID, nil
}

func (s *MemoryStore) Message(ctx context.Context, account, id uint32) (MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.account(account)
	if err != nil {
		return MessageRecord{}, err
	}
	m, ok := a.messages[id]
	if !ok {
		return MessageRecord{}, errors.Wrapf(ErrNotFound, "message %d", id)
	}
	return m, nil
}

func (s *MemoryStore) CountMessages(ctx context.Context, account uint32) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, err := s.account(account)
	if err != nil {
		return 0, err
	}
	return len(a.messages), nil
}

func (s *MemoryStore) Close() error { return nil }
