package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/wireline-chat/wireline/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the default backend
// for development and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/wireline.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/wireline.db"
	}

	// Ensure directory exists for file-backed databases
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// Every pooled connection to :memory: would get its own empty database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		wa_id TEXT UNIQUE NOT NULL,
		name TEXT DEFAULT '',
		picture TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		external_id TEXT UNIQUE NOT NULL,
		from_wa_id TEXT NOT NULL,
		to_wa_id TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'sent',
		receiver_name TEXT DEFAULT '',
		receiver_picture TEXT DEFAULT '',
		receiver_number TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_wa_id ON accounts(wa_id);
	CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_wa_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_messages_to ON messages(to_wa_id, timestamp);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateAccount creates a new account record.
func (s *SQLiteStore) CreateAccount(ctx context.Context, waID, name, picture string) (*models.Account, error) {
	account := &models.Account{
		ID:        uuid.New().String(),
		WaID:      waID,
		Name:      name,
		Picture:   picture,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, wa_id, name, picture, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, account.ID, account.WaID, account.Name, account.Picture, account.CreatedAt)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}

	return account, nil
}

// GetAccountByWaID retrieves an account by wa_id.
func (s *SQLiteStore) GetAccountByWaID(ctx context.Context, waID string) (*models.Account, error) {
	return s.getAccount(ctx, `SELECT id, wa_id, name, picture, created_at FROM accounts WHERE wa_id = ?`, waID)
}

// GetAccountByID retrieves an account by ID.
func (s *SQLiteStore) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return s.getAccount(ctx, `SELECT id, wa_id, name, picture, created_at FROM accounts WHERE id = ?`, id)
}

func (s *SQLiteStore) getAccount(ctx context.Context, query, arg string) (*models.Account, error) {
	account := &models.Account{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.WaID,
		&account.Name,
		&account.Picture,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

// InsertMessage persists a message. The store assigns a ULID as the message id
// so that ids are monotonic within a process and serve as the ordering
// tie-break when timestamps collide.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, external_id, from_wa_id, to_wa_id, content, timestamp, status,
			receiver_name, receiver_picture, receiver_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ExternalID, msg.From, msg.To, msg.Content, msg.Timestamp.UnixMilli(), msg.Status,
		msg.ReceiverProfile.Name, msg.ReceiverProfile.Picture, msg.ReceiverProfile.Number)
	return mapSQLiteErr(err)
}

// GetMessageByExternalID retrieves a message by its external idempotency key.
func (s *SQLiteStore) GetMessageByExternalID(ctx context.Context, externalID string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, from_wa_id, to_wa_id, content, timestamp, status,
			receiver_name, receiver_picture, receiver_number
		FROM messages WHERE external_id = ?
	`, externalID)
	return scanMessageRow(row)
}

// GetLatestMessageTo retrieves the single most recent message addressed to waID.
func (s *SQLiteStore) GetLatestMessageTo(ctx context.Context, waID string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, from_wa_id, to_wa_id, content, timestamp, status,
			receiver_name, receiver_picture, receiver_number
		FROM messages WHERE to_wa_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, waID)
	return scanMessageRow(row)
}

// SetMessageStatus updates the status of a single message.
func (s *SQLiteStore) SetMessageStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListThread returns all messages exchanged between the two parties, oldest
// first, with the message id as the tie-break for colliding timestamps.
func (s *SQLiteStore) ListThread(ctx context.Context, waID, otherWaID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id, from_wa_id, to_wa_id, content, timestamp, status,
			receiver_name, receiver_picture, receiver_number
		FROM messages
		WHERE from_wa_id IN (?, ?) AND to_wa_id IN (?, ?)
		ORDER BY timestamp ASC, id ASC
	`, waID, otherWaID, waID, otherWaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListMessagesFrom returns all messages sent by waID, oldest first.
func (s *SQLiteStore) ListMessagesFrom(ctx context.Context, waID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id, from_wa_id, to_wa_id, content, timestamp, status,
			receiver_name, receiver_picture, receiver_number
		FROM messages
		WHERE from_wa_id = ?
		ORDER BY timestamp ASC, id ASC
	`, waID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListConversations computes the latest message per chat partner and attaches
// the partner's account profile when one exists.
func (s *SQLiteStore) ListConversations(ctx context.Context, waID string) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH scoped AS (
			SELECT id, from_wa_id, to_wa_id, content, timestamp, status,
				CASE WHEN from_wa_id = ? THEN to_wa_id ELSE from_wa_id END AS chat_partner,
				ROW_NUMBER() OVER (
					PARTITION BY CASE WHEN from_wa_id = ? THEN to_wa_id ELSE from_wa_id END
					ORDER BY timestamp DESC, id DESC
				) AS rn
			FROM messages
			WHERE from_wa_id = ? OR to_wa_id = ?
		)
		SELECT m.id, m.from_wa_id, m.to_wa_id, m.content, m.timestamp, m.status, m.chat_partner,
			COALESCE(a.id, ''), COALESCE(a.name, ''), COALESCE(a.picture, ''), COALESCE(a.wa_id, '')
		FROM scoped m
		LEFT JOIN accounts a ON a.wa_id = m.chat_partner
		WHERE m.rn = 1
		ORDER BY m.timestamp DESC, m.id DESC
	`, waID, waID, waID, waID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		var ts int64
		if err := rows.Scan(
			&conv.MessageID,
			&conv.From,
			&conv.To,
			&conv.Content,
			&ts,
			&conv.Status,
			&conv.ChatPartner,
			&conv.PartnerID,
			&conv.PartnerName,
			&conv.PartnerPicture,
			&conv.PartnerWaID,
		); err != nil {
			return nil, err
		}
		conv.Timestamp = time.UnixMilli(ts).UTC()
		conversations = append(conversations, conv)
	}

	return conversations, rows.Err()
}

func scanMessageRow(row *sql.Row) (*models.Message, error) {
	msg := &models.Message{}
	var ts int64
	err := row.Scan(
		&msg.ID,
		&msg.ExternalID,
		&msg.From,
		&msg.To,
		&msg.Content,
		&ts,
		&msg.Status,
		&msg.ReceiverProfile.Name,
		&msg.ReceiverProfile.Picture,
		&msg.ReceiverProfile.Number,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	msg.Timestamp = time.UnixMilli(ts).UTC()
	return msg, nil
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var ts int64
		if err := rows.Scan(
			&msg.ID,
			&msg.ExternalID,
			&msg.From,
			&msg.To,
			&msg.Content,
			&ts,
			&msg.Status,
			&msg.ReceiverProfile.Name,
			&msg.ReceiverProfile.Picture,
			&msg.ReceiverProfile.Number,
		); err != nil {
			return nil, err
		}
		msg.Timestamp = time.UnixMilli(ts).UTC()
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return ErrDuplicateKey
		}
	}
	return err
}
