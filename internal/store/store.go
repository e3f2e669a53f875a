package store

import (
	"context"
	"errors"

	"github.com/wireline-chat/wireline/internal/models"
)

// ErrDuplicateKey is returned when an insert violates a uniqueness constraint
// (accounts.wa_id or messages.external_id). Every backend maps its native
// duplicate-key error onto this sentinel.
var ErrDuplicateKey = errors.New("duplicate key")

// DataStore defines the interface for persistent storage of accounts and
// messages. MongoStore, PostgresStore and SQLiteStore implement it. Lookups
// return (nil, nil) when the entity does not exist.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Account operations
	CreateAccount(ctx context.Context, waID, name, picture string) (*models.Account, error)
	GetAccountByWaID(ctx context.Context, waID string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)

	// Message operations
	InsertMessage(ctx context.Context, msg *models.Message) error
	GetMessageByExternalID(ctx context.Context, externalID string) (*models.Message, error)
	GetLatestMessageTo(ctx context.Context, waID string) (*models.Message, error)
	SetMessageStatus(ctx context.Context, id, status string) error

	// ListThread returns every message between the two parties, either
	// direction, ordered by timestamp ascending with message id as the
	// tie-break so the order is a stable total order.
	ListThread(ctx context.Context, waID, otherWaID string) ([]models.Message, error)

	// ListConversations groups the viewer's messages by the other
	// participant, keeps the latest message per group, left-joins the
	// partner's account profile, and orders by that latest timestamp
	// descending.
	ListConversations(ctx context.Context, waID string) ([]models.Conversation, error)

	// ListMessagesFrom is the derived view of "messages sent by this wa_id";
	// nothing is denormalized onto the account.
	ListMessagesFrom(ctx context.Context, waID string) ([]models.Message, error)
}
