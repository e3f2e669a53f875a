package service

import (
	"context"
	"fmt"
	"time"

	"github.com/wireline-chat/wireline/internal/models"
	"github.com/wireline-chat/wireline/internal/store"
	"github.com/wireline-chat/wireline/internal/wamid"
)

// MessageService implements sending, status updates, thread retrieval and the
// chat-list aggregation.
type MessageService struct {
	db store.DataStore
}

// NewMessageService creates a MessageService.
func NewMessageService(db store.DataStore) *MessageService {
	return &MessageService{db: db}
}

// Send stores a new outgoing message. The sender comes from an already
// verified identity; the recipient need not be registered, in which case the
// receiver profile snapshot is empty. No deduplication happens on this path.
func (s *MessageService) Send(ctx context.Context, fromWaID, toWaID, body string) (*models.Message, error) {
	if fromWaID == "" {
		return nil, fmt.Errorf("%w: sender info not found in token", ErrUnauthorized)
	}
	if toWaID == "" || body == "" {
		return nil, fmt.Errorf("%w: 'to' and 'message' are required", ErrBadRequest)
	}

	var profile models.Profile
	receiver, err := s.db.GetAccountByWaID(ctx, toWaID)
	if err != nil {
		return nil, err
	}
	if receiver != nil {
		profile = models.Profile{
			Name:    receiver.Name,
			Picture: receiver.Picture,
			Number:  receiver.WaID,
		}
	}

	msg := &models.Message{
		ExternalID:      wamid.New(),
		From:            fromWaID,
		To:              toWaID,
		Content:         body,
		Timestamp:       time.Now().UTC(),
		Status:          models.StatusSent,
		ReceiverProfile: profile,
	}

	if err := s.db.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkLatestSeen sets the status of the single most recent message addressed
// to peerWaID. This is deliberately coarse: it does not target a specific
// message, only whatever is currently latest for that counterparty. The
// read-then-write is unguarded; last writer wins on an advisory field.
func (s *MessageService) MarkLatestSeen(ctx context.Context, peerWaID, status string) error {
	if peerWaID == "" || status == "" {
		return fmt.Errorf("%w: both wa_id and status are required", ErrBadRequest)
	}

	latest, err := s.db.GetLatestMessageTo(ctx, peerWaID)
	if err != nil {
		return err
	}
	if latest == nil {
		return fmt.Errorf("%w: no message found for wa_id %s", ErrNotFound, peerWaID)
	}

	return s.db.SetMessageStatus(ctx, latest.ID, status)
}

// Thread returns every message between the viewer and the other party, either
// direction, oldest first. The viewer is identified by account id from the
// resolved credential.
func (s *MessageService) Thread(ctx context.Context, viewerAccountID, otherWaID string) ([]models.Message, error) {
	if viewerAccountID == "" {
		return nil, fmt.Errorf("%w: missing identity", ErrUnauthorized)
	}
	if otherWaID == "" {
		return nil, fmt.Errorf("%w: otherWaId is required", ErrBadRequest)
	}

	viewer, err := s.db.GetAccountByID(ctx, viewerAccountID)
	if err != nil {
		return nil, err
	}
	if viewer == nil {
		return nil, fmt.Errorf("%w: viewer account not found", ErrNotFound)
	}

	return s.db.ListThread(ctx, viewer.WaID, otherWaID)
}

// Conversations returns the viewer's chat list: the latest message per
// counterparty with the partner's current profile attached, newest first.
func (s *MessageService) Conversations(ctx context.Context, viewerWaID string) ([]models.Conversation, error) {
	if viewerWaID == "" {
		return nil, fmt.Errorf("%w: missing identity", ErrUnauthorized)
	}
	return s.db.ListConversations(ctx, viewerWaID)
}
