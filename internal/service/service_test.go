package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wireline-chat/wireline/internal/auth"
	"github.com/wireline-chat/wireline/internal/models"
	"github.com/wireline-chat/wireline/internal/store"
)

func newTestServices(t *testing.T) (*AccountService, *MessageService, store.DataStore) {
	t.Helper()
	db, err := store.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(db.Close)
	signer := auth.NewSigner("test-secret", time.Hour)
	return NewAccountService(db, signer), NewMessageService(db), db
}

func TestCreateAccountConflict(t *testing.T) {
	accounts, _, _ := newTestServices(t)
	ctx := context.Background()

	first, err := accounts.Create(ctx, "15551230000", "alice", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == "" || first.WaID != "15551230000" {
		t.Fatalf("unexpected account: %+v", first)
	}

	_, err = accounts.Create(ctx, "15551230000", "alice again", "")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	_, err = accounts.Create(ctx, "", "anon", "")
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for empty wa_id, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	accounts, _, _ := newTestServices(t)
	ctx := context.Background()

	if _, err := accounts.Create(ctx, "15551230000", "alice", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	token, err := accounts.Login(ctx, "15551230000")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	if _, err := accounts.Login(ctx, "15559999999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown wa_id, got %v", err)
	}
}

func TestSendToRegisteredRecipient(t *testing.T) {
	accounts, messages, _ := newTestServices(t)
	ctx := context.Background()

	bob, err := accounts.Create(ctx, "15551230001", "bob", "https://cdn.example/bob.png")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	msg, err := messages.Send(ctx, "15551230000", bob.WaID, "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Status != models.StatusSent {
		t.Fatalf("expected status sent, got %s", msg.Status)
	}
	if msg.ExternalID == "" {
		t.Fatal("expected a generated external id")
	}
	want := models.Profile{Name: "bob", Picture: "https://cdn.example/bob.png", Number: bob.WaID}
	if msg.ReceiverProfile != want {
		t.Fatalf("expected recipient profile snapshot, got %+v", msg.ReceiverProfile)
	}
}

func TestSendToUnknownRecipient(t *testing.T) {
	_, messages, _ := newTestServices(t)

	msg, err := messages.Send(context.Background(), "15551230000", "15550000000", "anyone there?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ReceiverProfile != (models.Profile{}) {
		t.Fatalf("expected empty profile for unregistered recipient, got %+v", msg.ReceiverProfile)
	}
}

func TestSendValidation(t *testing.T) {
	_, messages, _ := newTestServices(t)
	ctx := context.Background()

	if _, err := messages.Send(ctx, "", "b", "hi"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty sender, got %v", err)
	}
	if _, err := messages.Send(ctx, "a", "", "hi"); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for empty recipient, got %v", err)
	}
	if _, err := messages.Send(ctx, "a", "b", ""); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for empty body, got %v", err)
	}
}

func TestMarkLatestSeen(t *testing.T) {
	_, messages, db := newTestServices(t)
	ctx := context.Background()

	first, err := messages.Send(ctx, "A", "B", "one")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	second, err := messages.Send(ctx, "A", "B", "two")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := messages.MarkLatestSeen(ctx, "B", models.StatusSeen); err != nil {
		t.Fatalf("mark seen: %v", err)
	}

	// Exactly the latest message addressed to B changes; the older one and
	// everything addressed elsewhere keeps its status.
	gotSecond, _ := db.GetMessageByExternalID(ctx, second.ExternalID)
	if gotSecond.Status != models.StatusSeen {
		t.Fatalf("latest message should be seen, got %s", gotSecond.Status)
	}
	gotFirst, _ := db.GetMessageByExternalID(ctx, first.ExternalID)
	if gotFirst.Status != models.StatusSent {
		t.Fatalf("older message must stay sent, got %s", gotFirst.Status)
	}
}

func TestMarkLatestSeenErrors(t *testing.T) {
	_, messages, _ := newTestServices(t)
	ctx := context.Background()

	if err := messages.MarkLatestSeen(ctx, "", models.StatusSeen); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if err := messages.MarkLatestSeen(ctx, "B", ""); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if err := messages.MarkLatestSeen(ctx, "nobody", models.StatusSeen); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for peer with no messages, got %v", err)
	}
}

func TestThread(t *testing.T) {
	accounts, messages, _ := newTestServices(t)
	ctx := context.Background()

	alice, err := accounts.Create(ctx, "15551230000", "alice", "")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}

	if _, err := messages.Send(ctx, alice.WaID, "15551230001", "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := messages.Send(ctx, "15551230001", alice.WaID, "hello back"); err != nil {
		t.Fatalf("send: %v", err)
	}

	thread, err := messages.Thread(ctx, alice.ID, "15551230001")
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if len(thread) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(thread))
	}
	if thread[0].Content != "hi" || thread[1].Content != "hello back" {
		t.Fatalf("unexpected order: %q, %q", thread[0].Content, thread[1].Content)
	}

	if _, err := messages.Thread(ctx, "no-such-account", "15551230001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown viewer, got %v", err)
	}
	if _, err := messages.Thread(ctx, "", "15551230001"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestConversationsLatestWins(t *testing.T) {
	accounts, messages, _ := newTestServices(t)
	ctx := context.Background()

	if _, err := accounts.Create(ctx, "15551230001", "bob", ""); err != nil {
		t.Fatalf("create bob: %v", err)
	}

	// Two counterparties; carol's conversation receives the most recent
	// message, so it must sort first even though bob's started later.
	if _, err := messages.Send(ctx, "15551230002", "15551230000", "from carol"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := messages.Send(ctx, "15551230000", "15551230001", "to bob"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := messages.Send(ctx, "15551230002", "15551230000", "carol again"); err != nil {
		t.Fatalf("send: %v", err)
	}

	convs, err := messages.Conversations(ctx, "15551230000")
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ChatPartner != "15551230002" || convs[0].Content != "carol again" {
		t.Fatalf("expected carol's latest first, got %+v", convs[0])
	}
	if convs[1].ChatPartner != "15551230001" || convs[1].PartnerName != "bob" {
		t.Fatalf("expected bob with profile, got %+v", convs[1])
	}

	if _, err := messages.Conversations(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSentMessages(t *testing.T) {
	accounts, messages, _ := newTestServices(t)
	ctx := context.Background()

	if _, err := messages.Send(ctx, "A", "B", "one"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := messages.Send(ctx, "A", "C", "two"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := messages.Send(ctx, "B", "A", "reply"); err != nil {
		t.Fatalf("send: %v", err)
	}

	sent, err := accounts.SentMessages(ctx, "A")
	if err != nil {
		t.Fatalf("sent messages: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("expected 2 sent messages, got %d", len(sent))
	}
}
