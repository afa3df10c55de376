package accounts

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrSelfContact is returned when an operation does not apply to the
// account's own contact.
var ErrSelfContact = errors.New("cannot modify the self contact")

func normalizeAddr(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

func (m *Manager) contactView(c ContactRecord) Contact {
	display := c.Name
	if display == "" {
		display = c.AuthName
	}
	if display == "" {
		display = c.Addr
	}
	nameAndAddr := c.Addr
	if display != c.Addr {
		nameAndAddr = display + " (" + c.Addr + ")"
	}
	return Contact{
		Address:     c.Addr,
		Color:       colorFor(c.Addr),
		AuthName:    c.AuthName,
		Status:      c.Status,
		DisplayName: display,
		ID:          c.ID,
		Name:        c.Name,
		NameAndAddr: nameAndAddr,
		IsBlocked:   c.Blocked,
	}
}

// contact resolves a contact ID, including the self contact.
func (m *Manager) contact(ctx context.Context, account, id uint32) (Contact, error) {
	if id == SelfContactID {
		return m.selfContact(ctx, account)
	}
	rec, err := m.store.Contact(ctx, account, id)
	if err != nil {
		return Contact{}, err
	}
	return m.contactView(rec), nil
}

func (m *Manager) selfContact(ctx context.Context, account uint32) (Contact, error) {
	rec := ContactRecord{ID: SelfContactID}
	for key, dst := range map[string]*string{
		KeyAddr:        &rec.Addr,
		KeyDisplayName: &rec.Name,
		KeySelfStatus:  &rec.Status,
	} {
		v, err := m.config(ctx, account, key)
		if err != nil {
			return Contact{}, err
		}
		if v != nil {
			*dst = *v
		}
	}
	avatar, err := m.config(ctx, account, KeySelfAvatar)
	if err != nil {
		return Contact{}, err
	}
	c := m.contactView(rec)
	c.ProfileImage = avatar
	c.IsVerified = true
	return c, nil
}

func matches(c Contact, query *string) bool {
	if query == nil || *query == "" {
		return true
	}
	q := strings.ToLower(*query)
	return strings.Contains(strings.ToLower(c.Address), q) ||
		strings.Contains(strings.ToLower(c.DisplayName), q)
}

// listContacts returns the unblocked contacts matching query.
func (m *Manager) listContacts(ctx context.Context, account, listFlags uint32, query *string) ([]Contact, error) {
	if err := m.requireAccount(ctx, account); err != nil {
		return nil, err
	}
	recs, err := m.store.Contacts(ctx, account)
	if err != nil {
		return nil, err
	}
	out := make([]Contact, 0, len(recs))
	for _, rec := range recs {
		if rec.Blocked {
			continue
		}
		if c := m.contactView(rec); matches(c, query) {
			out = append(out, c)
		}
	}
	if listFlags&ListAddSelf != 0 {
		self, err := m.selfContact(ctx, account)
		if err != nil {
			return nil, err
		}
		if matches(self, query) {
			out = append(out, self)
		}
	}
	return out, nil
}

// ContactsCreateContact adds a contact, or updates the name of the
// existing contact with the same address. A blocked contact is unblocked.
func (m *Manager) ContactsCreateContact(ctx context.Context, accountID uint32, email string, name *string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return 0, err
	}
	if !validEmail(email) {
		return 0, ErrInvalidEmail
	}
	addr := normalizeAddr(email)

	rec, err := m.store.ContactByAddr(ctx, accountID, addr)
	switch {
	case errors.Is(err, ErrNotFound):
		rec = ContactRecord{Addr: addr}
	case err != nil:
		return 0, err
	}
	if name != nil && *name != "" {
		rec.Name = *name
	}
	rec.Blocked = false
	return m.store.PutContact(ctx, accountID, rec)
}

// ContactsGetContact returns one contact.
func (m *Manager) ContactsGetContact(ctx context.Context, accountID, contactID uint32) (Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return Contact{}, err
	}
	return m.contact(ctx, accountID, contactID)
}

func (m *Manager) setBlocked(ctx context.Context, accountID, contactID uint32, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return err
	}
	if contactID <= lastSpecialContactID {
		return errors.Wrapf(ErrSelfContact, "contact %d", contactID)
	}
	rec, err := m.store.Contact(ctx, accountID, contactID)
	if err != nil {
		return err
	}
	if rec.Blocked == blocked {
		return nil
	}
	rec.Blocked = blocked
	_, err = m.store.PutContact(ctx, accountID, rec)
	return err
}

// ContactsBlock blocks a contact.
func (m *Manager) ContactsBlock(ctx context.Context, accountID, contactID uint32) error {
	return m.setBlocked(ctx, accountID, contactID, true)
}

// ContactsUnblock unblocks a contact.
func (m *Manager) ContactsUnblock(ctx context.Context, accountID, contactID uint32) error {
	return m.setBlocked(ctx, accountID, contactID, false)
}

// ContactsGetBlocked returns the blocked contacts.
func (m *Manager) ContactsGetBlocked(ctx context.Context, accountID uint32) ([]Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return nil, err
	}
	recs, err := m.store.Contacts(ctx, accountID)
	if err != nil {
		return nil, err
	}
	out := []Contact{}
	for _, rec := range recs {
		if rec.Blocked {
			out = append(out, m.contactView(rec))
		}
	}
	return out, nil
}

// ContactsGetContactIDs returns the IDs of unblocked contacts whose
// address or name contains query.
func (m *Manager) ContactsGetContactIDs(ctx context.Context, accountID, listFlags uint32, query *string) ([]uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	contacts, err := m.listContacts(ctx, accountID, listFlags, query)
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, len(contacts))
	for i, c := range contacts {
		ids[i] = c.ID
	}
	return ids, nil
}

// ContactsGetContacts is ContactsGetContactIDs returning whole contacts.
func (m *Manager) ContactsGetContacts(ctx context.Context, accountID, listFlags uint32, query *string) ([]Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.listContacts(ctx, accountID, listFlags, query)
}

// ContactsGetContactsByIDs returns the contacts keyed by ID. Any unknown
// ID fails the whole call.
func (m *Manager) ContactsGetContactsByIDs(ctx context.Context, accountID uint32, ids []uint32) (map[uint32]Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return nil, err
	}
	out := make(map[uint32]Contact, len(ids))
	for _, id := range ids {
		c, err := m.contact(ctx, accountID, id)
		if err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, nil
}

// ContactsCreateChatByContactID returns the one-to-one chat with a
// contact, creating it if needed.
func (m *Manager) ContactsCreateChatByContactID(ctx context.Context, accountID, contactID uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return 0, err
	}
	if _, err := m.contact(ctx, accountID, contactID); err != nil {
		return 0, err
	}
	chat, err := m.store.ChatByContact(ctx, accountID, contactID)
	if err == nil {
		return chat.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	return m.store.CreateChat(ctx, accountID, contactID)
}

// ChatlistGetFullChatByID returns a chat with its contacts.
func (m *Manager) ChatlistGetFullChatByID(ctx context.Context, accountID, chatID uint32) (FullChat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return FullChat{}, err
	}
	chat, err := m.store.Chat(ctx, accountID, chatID)
	if err != nil {
		return FullChat{}, err
	}
	contact, err := m.contact(ctx, accountID, chat.ContactID)
	if err != nil {
		return FullChat{}, err
	}
	selfTalk := chat.ContactID == SelfContactID
	return FullChat{
		ID:           chat.ID,
		Name:         contact.DisplayName,
		ProfileImage: contact.ProfileImage,
		Archived:     chat.Archived,
		ChatType:     ChatTypeSingle,
		IsSelfTalk:   selfTalk,
		Contacts:     []Contact{contact},
		ContactIDs:   []uint32{chat.ContactID},
		Color:        contact.Color,
		SelfInGroup:  selfTalk,
		IsMuted:      chat.Muted,
	}, nil
}

// MiscSendTextMessage appends an outgoing text message to a chat and
// returns its ID.
func (m *Manager) MiscSendTextMessage(ctx context.Context, accountID uint32, text string, chatID uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return 0, err
	}
	return m.store.AddMessage(ctx, accountID, MessageRecord{
		ChatID:    chatID,
		FromID:    SelfContactID,
		Text:      text,
		Timestamp: m.now().Unix(),
	})
}

// MessageGetMessage returns one message.
func (m *Manager) MessageGetMessage(ctx context.Context, accountID, messageID uint32) (Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.requireAccount(ctx, accountID); err != nil {
		return Message{}, err
	}
	rec, err := m.store.Message(ctx, accountID, messageID)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:        rec.ID,
		ChatID:    rec.ChatID,
		FromID:    rec.FromID,
		Text:      rec.Text,
		Timestamp: rec.Timestamp,
	}, nil
}
