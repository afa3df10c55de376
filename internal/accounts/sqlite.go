package accounts

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT
);
CREATE TABLE IF NOT EXISTS selection (
	singleton INTEGER PRIMARY KEY CHECK (singleton = 1),
	account_id INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS config (
	account_id INTEGER NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (account_id, key)
);
CREATE TABLE IF NOT EXISTS contacts (
	account_id INTEGER NOT NULL,
	id INTEGER NOT NULL,
	addr TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	auth_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	blocked INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (account_id, id)
);
CREATE TABLE IF NOT EXISTS chats (
	account_id INTEGER NOT NULL,
	id INTEGER NOT NULL,
	contact_id INTEGER NOT NULL,
	archived INTEGER NOT NULL DEFAULT 0,
	muted INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (account_id, id)
);
CREATE TABLE IF NOT EXISTS messages (
	account_id INTEGER NOT NULL,
	id INTEGER NOT NULL,
	chat_id INTEGER NOT NULL,
	from_id INTEGER NOT NULL,
	text TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	PRIMARY KEY (account_id, id)
);`

// SQLiteStore is a Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens the database at dsn, creating the schema if needed.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", dsn)
	}
	// Serializes writers and keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return errors.Wrap(err, "migrate sqlite schema")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) requireAccount(ctx context.Context, q querier, id uint32) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(ErrNotFound, "account %d", id)
	}
	return errors.Wrapf(err, "lookup account %d", id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (s *SQLiteStore) CreateAccount(ctx context.Context) (uint32, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO accounts DEFAULT VALUES`)
	if err != nil {
		return 0, errors.Wrap(err, "insert account")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "account id")
	}
	return uint32(id), nil
}

func (s *SQLiteStore) DeleteAccount(ctx context.Context, id uint32) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireAccount(ctx, tx, id); err != nil {
			return err
		}
		for _, stmt := range []string{
			`DELETE FROM accounts WHERE id = ?`,
			`DELETE FROM selection WHERE account_id = ?`,
			`DELETE FROM config WHERE account_id = ?`,
			`DELETE FROM contacts WHERE account_id = ?`,
			`DELETE FROM chats WHERE account_id = ?`,
			`DELETE FROM messages WHERE account_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return errors.Wrapf(err, "delete account %d", id)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) AccountIDs(ctx context.Context) ([]uint32, error) {
	return s.ids(ctx, `SELECT id FROM accounts ORDER BY id`)
}

func (s *SQLiteStore) ids(ctx context.Context, query string, args ...any) ([]uint32, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query ids")
	}
	defer func() { _ = rows.Close() }()

	ids := []uint32{}
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan id")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "iterate ids")
}

func (s *SQLiteStore) AccountExists(ctx context.Context, id uint32) (bool, error) {
	err := s.requireAccount(ctx, s.db, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) SelectedAccount(ctx context.Context) (uint32, bool, error) {
	var id uint32
	err := s.db.QueryRowContext(ctx, `SELECT account_id FROM selection WHERE singleton = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "selected account")
	}
	return id, true, nil
}

func (s *SQLiteStore) SetSelectedAccount(ctx context.Context, id uint32) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if id == 0 {
			_, err := tx.ExecContext(ctx, `DELETE FROM selection`)
			return errors.Wrap(err, "clear selection")
		}
		if err := s.requireAccount(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO selection (singleton, account_id) VALUES (1, ?)
			 ON CONFLICT (singleton) DO UPDATE SET account_id = excluded.account_id`, id)
		return errors.Wrap(err, "select account")
	})
}

func (s *SQLiteStore) GetConfig(ctx context.Context, account uint32, key string) (string, bool, error) {
	if err := s.requireAccount(ctx, s.db, account); err != nil {
		return "", false, err
	}
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM config WHERE account_id = ? AND key = ?`, account, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get config %s", key)
	}
	return v, true, nil
}

func (s *SQLiteStore) SetConfig(ctx context.Context, account uint32, key string, value *string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireAccount(ctx, tx, account); err != nil {
			return err
		}
		var err error
		if value == nil {
			_, err = tx.ExecContext(ctx, `DELETE FROM config WHERE account_id = ? AND key = ?`, account, key)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO config (account_id, key, value) VALUES (?, ?, ?)
				 ON CONFLICT (account_id, key) DO UPDATE SET value = excluded.value`,
				account, key, *value)
		}
		return errors.Wrapf(err, "set config %s", key)
	})
}

func nextID(ctx context.Context, tx *sql.Tx, table string, account, floor uint32) (uint32, error) {
	var id uint32
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), ?) + 1 FROM `+table+` WHERE account_id = ?`, floor, account).Scan(&id)
	return id, errors.Wrapf(err, "allocate %s id", table)
}

func (s *SQLiteStore) PutContact(ctx context.Context, account uint32, c ContactRecord) (uint32, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireAccount(ctx, tx, account); err != nil {
			return err
		}
		if c.ID != 0 {
			res, err := tx.ExecContext(ctx,
				`UPDATE contacts SET addr = ?, name = ?, auth_name = ?, status = ?, blocked = ?
				 WHERE account_id = ? AND id = ?`,
				c.Addr, c.Name, c.AuthName, c.Status, c.Blocked, account, c.ID)
			if err != nil {
				return errors.Wrapf(err, "update contact %d", c.ID)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return errors.Wrapf(ErrNotFound, "contact %d", c.ID)
			}
			return nil
		}
		id, err := nextID(ctx, tx, "contacts", account, lastSpecialContactID)
		if err != nil {
			return err
		}
		c.ID = id
		_, err = tx.ExecContext(ctx,
			`INSERT INTO contacts (account_id, id, addr, name, auth_name, status, blocked)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			account, c.ID, c.Addr, c.Name, c.AuthName, c.Status, c.Blocked)
		return errors.Wrap(err, "insert contact")
	})
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

const contactColumns = `id, addr, name, auth_name, status, blocked`

func scanContact(row interface{ Scan(...any) error }) (ContactRecord, error) {
	var c ContactRecord
	err := row.Scan(&c.ID, &c.Addr, &c.Name, &c.AuthName, &c.Status, &c.Blocked)
	return c, err
}

func (s *SQLiteStore) Contact(ctx context.Context, account, id uint32) (ContactRecord, error) {
	if err := s.requireAccount(ctx, s.db, account); err != nil {
		return ContactRecord{}, err
	}
	c, err := scanContact(s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE account_id = ? AND id = ?`, account, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ContactRecord{}, errors.Wrapf(ErrNotFound, "contact %d", id)
	}
	return c, errors.Wrapf(err, "get contact %d", id)
}

func (s *SQLiteStore) ContactByAddr(ctx context.Context, account uint32, addr string) (ContactRecord, error) {
	if err := s.requireAccount(ctx, s.db, account); err != nil {
		return ContactRecord{}, err
	}
	c, err := scanContact(s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE account_id = ? AND addr = ?`, account, addr))
	if errors.Is(err, sql.ErrNoRows) {
		return ContactRecord{}, errors.Wrapf(ErrNotFound, "contact %s", addr)
	}
	return c, errors.Wrapf(err, "get contact %s", addr)
}

func (s *SQLiteStore) Contacts(ctx context.Context, account uint32) ([]ContactRecord, error) {
	if err := s.requireAccount(ctx, s.db, account); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE account_id = ? ORDER BY id`, account)
	if err != nil {
		return nil, errors.Wrap(err, "list contacts")
	}
	defer func() { _ = rows.Close() }()

	out := []ContactRecord{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan contact")
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "iterate contacts")
}

func (s *SQLiteStore) CreateChat(ctx context.Context, account, contactID uint32) (uint32, error) {
	var id uint32
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireAccount(ctx, tx, account); err != nil {
			return err
		}
		var err error
		if id, err = nextID(ctx, tx, "chats", account, lastSpecialChatID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chats (account_id, id, contact_id) VALUES (?, ?, ?)`, account, id, contactID)
		return errors.Wrap(err, "insert chat")
	})
	return id, err
}

func (s *SQLiteStore) chat(ctx context.Context, account uint32, where string, arg uint32) (ChatRecord, error) {
	if err := s.requireAccount(ctx, s.db, account); err != nil {
		return ChatRecord{}, err
	}
	var c ChatRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, contact_id, archived, muted FROM chats WHERE account_id = ? AND `+where+` = ? ORDER BY id LIMIT 1`,
		account, arg).Scan(&c.ID, &c.ContactID, &c.Archived, &c.Muted)
	if errors.Is(err, sql.ErrNoRows) {
		return ChatRecord{}, errors.Wrapf(ErrNotFound, "chat %s=%d", where, arg)
	}
	return c, errors.Wrap(err, "get chat")
}

func (s *SQLiteStore) Chat(ctx context.Context, account, id uint32) (ChatRecord, error) {
	return s.chat(ctx, account, "id", id)
}

func (s *SQLiteStore) ChatByContact(ctx context.Context, account, contactID uint32) (ChatRecord, error) {
	return s.chat(ctx, account, "contact_id", contactID)
}

func (s *SQLiteStore) count(ctx context.Context, table string, account uint32) (int, error) {
	if err := s.requireAccount(ctx, s.db, account); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE account_id = ?`, account).Scan(&n)
	return n, errors.Wrapf(err, "count %s", table)
}

func (s *SQLiteStore) CountChats(ctx context.Context, account uint32) (int, error) {
	return s.count(ctx, "chats", account)
}

func (s *SQLiteStore) AddMessage(ctx context.Context, account uint32, m MessageRecord) (uint32, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM chats WHERE account_id = ? AND id = ?`, account, m.ChatID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrapf(ErrNotFound, "chat %d", m.ChatID)
		}
		if err != nil {
			return errors.Wrap(err, "lookup chat")
		}
		if m.ID, err = nextID(ctx, tx, "messages", account, 0); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (account_id, id, chat_id, from_id, text, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
			account, m.ID, m.ChatID, m.FromID, m.Text, m.Timestamp)
		return errors.Wrap(err, "insert message")
	})
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (s *SQLiteStore) Message(ctx context.Context, account, id uint32) (MessageRecord, error) {
	if err := s.requireAccount(ctx, s.db, account); err != nil {
		return MessageRecord{}, err
	}
	var m MessageRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, from_id, text, timestamp FROM messages WHERE account_id = ? AND id = ?`,
		account, id).Scan(&m.ID, &m.ChatID, &m.FromID, &m.Text, &m.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return MessageRecord{}, errors.Wrapf(ErrNotFound, "message %d", id)
	}
	return m, errors.Wrapf(err, "get message %d", id)
}

func (s *SQLiteStore) CountMessages(ctx context.Context, account uint32) (int, error) {
	return s.count(ctx, "messages", account)
}
