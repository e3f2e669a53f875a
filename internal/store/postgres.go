package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/wireline-chat/wireline/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		wa_id TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		picture TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		external_id TEXT UNIQUE NOT NULL,
		from_wa_id TEXT NOT NULL,
		to_wa_id TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'sent',
		receiver_name TEXT NOT NULL DEFAULT '',
		receiver_picture TEXT NOT NULL DEFAULT '',
		receiver_number TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_wa_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_messages_to ON messages(to_wa_id, timestamp);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateAccount creates a new account record.
func (s *PostgresStore) CreateAccount(ctx context.Context, waID, name, picture string) (*models.Account, error) {
	account := &models.Account{
		ID:      uuid.New().String(),
		WaID:    waID,
		Name:    name,
		Picture: picture,
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, wa_id, name, picture)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, account.ID, account.WaID, account.Name, account.Picture).Scan(&account.CreatedAt)
	if err != nil {
		return nil, mapPostgresErr(err)
	}
	return account, nil
}

// GetAccountByWaID retrieves an account by wa_id.
func (s *PostgresStore) GetAccountByWaID(ctx context.Context, waID string) (*models.Account, error) {
	return s.getAccount(ctx, `SELECT id, wa_id, name, picture, created_at FROM accounts WHERE wa_id = $1`, waID)
}

// GetAccountByID retrieves an account by ID.
func (s *PostgresStore) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return s.getAccount(ctx, `SELECT id, wa_id, name, picture, created_at FROM accounts WHERE id = $1`, id)
}

func (s *PostgresStore) getAccount(ctx context.Context, query, arg string) (*models.Account, error) {
	account := &models.Account{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.WaID,
		&account.Name,
		&account.Picture,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

// InsertMessage persists a message. Assigns a ULID id, the ordering tie-break
// for colliding timestamps.
func (s *PostgresStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, external_id, from_wa_id, to_wa_id, content, timestamp, status,
			receiver_name, receiver_picture, receiver_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, msg.ID, msg.ExternalID, msg.From, msg.To, msg.Content, msg.Timestamp, msg.Status,
		msg.ReceiverProfile.Name, msg.ReceiverProfile.Picture, msg.ReceiverProfile.Number)
	return mapPostgresErr(err)
}

// GetMessageByExternalID retrieves a message by its external idempotency key.
func (s *PostgresStore) GetMessageByExternalID(ctx context.Context, externalID string) (*models.Message, error) {
	return s.getMessage(ctx, `
		SELECT id, external_id, from_wa_id, to_wa_id, content, timestamp, status,
			receiver_name, receiver_picture, receiver_number
		FROM messages WHERE external_id = $1
	`, externalID)
}

// GetLatestMessageTo retrieves the single most recent message addressed to waID.
func (s *PostgresStore) GetLatestMessageTo(ctx context.Context, waID string) (*models.Message, error) {
	return s.getMessage(ctx, `
		SELECT id, external_id, from_wa_id, to_wa_id, content, timestamp, status,
			receiver_name, receiver_picture, receiver_number
		FROM messages WHERE to_wa_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, waID)
}

func (s *PostgresStore) getMessage(ctx context.Context, query, arg string) (*models.Message, error) {
	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&msg.ID,
		&msg.ExternalID,
		&msg.From,
		&msg.To,
		&msg.Content,
		&msg.Timestamp,
		&msg.Status,
		&msg.ReceiverProfile.Name,
		&msg.ReceiverProfile.Picture,
		&msg.ReceiverProfile.Number,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// SetMessageStatus updates the status of a single message.
func (s *PostgresStore) SetMessageStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE messages SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListThread returns all messages between the two parties, oldest first.
func (s *PostgresStore) ListThread(ctx context.Context, waID, otherWaID string) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, external_id, from_wa_id, to_wa_id, content, timestamp, status,
			receiver_name, receiver_picture, receiver_number
		FROM messages
		WHERE from_wa_id = ANY($1) AND to_wa_id = ANY($1)
		ORDER BY timestamp ASC, id ASC
	`, []string{waID, otherWaID})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.collectMessages(rows)
}

// ListMessagesFrom returns all messages sent by waID, oldest first.
func (s *PostgresStore) ListMessagesFrom(ctx context.Context, waID string) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, external_id, from_wa_id, to_wa_id, content, timestamp, status,
			receiver_name, receiver_picture, receiver_number
		FROM messages
		WHERE from_wa_id = $1
		ORDER BY timestamp ASC, id ASC
	`, waID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.collectMessages(rows)
}

func (s *PostgresStore) collectMessages(rows pgx.Rows) ([]models.Message, error) {
	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ExternalID,
			&msg.From,
			&msg.To,
			&msg.Content,
			&msg.Timestamp,
			&msg.Status,
			&msg.ReceiverProfile.Name,
			&msg.ReceiverProfile.Picture,
			&msg.ReceiverProfile.Number,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ListConversations computes the latest message per chat partner via
// DISTINCT ON and attaches the partner's account profile when one exists.
func (s *PostgresStore) ListConversations(ctx context.Context, waID string) ([]models.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.from_wa_id, m.to_wa_id, m.content, m.timestamp, m.status, m.chat_partner,
			COALESCE(a.id, ''), COALESCE(a.name, ''), COALESCE(a.picture, ''), COALESCE(a.wa_id, '')
		FROM (
			SELECT DISTINCT ON (chat_partner) *
			FROM (
				SELECT id, from_wa_id, to_wa_id, content, timestamp, status,
					CASE WHEN from_wa_id = $1 THEN to_wa_id ELSE from_wa_id END AS chat_partner
				FROM messages
				WHERE from_wa_id = $1 OR to_wa_id = $1
			) scoped
			ORDER BY chat_partner, timestamp DESC, id DESC
		) m
		LEFT JOIN accounts a ON a.wa_id = m.chat_partner
		ORDER BY m.timestamp DESC, m.id DESC
	`, waID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(
			&conv.MessageID,
			&conv.From,
			&conv.To,
			&conv.Content,
			&conv.Timestamp,
			&conv.Status,
			&conv.ChatPartner,
			&conv.PartnerID,
			&conv.PartnerName,
			&conv.PartnerPicture,
			&conv.PartnerWaID,
		); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func mapPostgresErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateKey
	}
	return err
}
