package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wireline-chat/wireline/internal/store"
)

const samplePayload = `{
  "metaData": {
    "entry": [
      {
        "changes": [
          {
            "field": "messages",
            "value": {
              "metadata": {"display_phone_number": "15551230000"},
              "contacts": [
                {"wa_id": "15551239999", "profile": {"name": "Ravi", "picture": "https://cdn.example/ravi.png"}}
              ],
              "messages": [
                {"id": "wamid.aaa", "from": "15551239999", "timestamp": "1700000000", "text": {"body": "hello"}},
                {"id": "wamid.bbb", "from": "15551230000", "timestamp": "1700000060", "text": {"body": "hi back"}},
                {"id": "", "from": "15551239999", "timestamp": "1700000120", "text": {"body": "no id"}},
                {"id": "wamid.ccc", "from": "", "timestamp": "1700000180", "text": {"body": "no sender"}},
                {"id": "wamid.ddd", "from": "15551239999", "timestamp": "not-a-number", "text": {"body": "bad ts"}}
              ]
            }
          },
          {"field": "statuses", "value": {}}
        ]
      }
    ]
  }
}`

func samplePayloads(t *testing.T) []Payload {
	t.Helper()
	var p Payload
	if err := json.Unmarshal([]byte(samplePayload), &p); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return []Payload{p}
}

func TestRecordsExtraction(t *testing.T) {
	recs := Records(samplePayloads(t)[0])

	if len(recs) != 2 {
		t.Fatalf("expected 2 records (3 incomplete skipped), got %d", len(recs))
	}

	incoming := recs[0]
	if incoming.ExternalID != "wamid.aaa" {
		t.Fatalf("unexpected external id %s", incoming.ExternalID)
	}
	if incoming.From != "15551239999" || incoming.To != "15551230000" {
		t.Fatalf("incoming message should be addressed to the business line, got from=%s to=%s", incoming.From, incoming.To)
	}
	if incoming.Content != "hello" {
		t.Fatalf("unexpected content %q", incoming.Content)
	}
	if incoming.Timestamp.Unix() != 1700000000 {
		t.Fatalf("unexpected timestamp %v", incoming.Timestamp)
	}
	if incoming.Profile.Name != "Ravi" || incoming.Profile.Number != "15551239999" {
		t.Fatalf("unexpected profile snapshot %+v", incoming.Profile)
	}

	outgoing := recs[1]
	if outgoing.From != "15551230000" || outgoing.To != "15551239999" {
		t.Fatalf("outgoing message should be addressed to the contact, got from=%s to=%s", outgoing.From, outgoing.To)
	}
}

func TestImporterIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := store.NewSQLiteStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	im := NewImporter(db, zerolog.Nop())
	payloads := samplePayloads(t)

	inserted, err := im.Run(ctx, payloads)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 inserts on first run, got %d", inserted)
	}

	inserted, err = im.Run(ctx, payloads)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("expected 0 inserts on second run, got %d", inserted)
	}

	msg, err := db.GetMessageByExternalID(ctx, "wamid.aaa")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if msg == nil || msg.Status != "sent" {
		t.Fatalf("expected stored message with status sent, got %+v", msg)
	}
}

func TestDecodeBatch(t *testing.T) {
	logger := zerolog.Nop()

	single := DecodeBatch([]byte(samplePayload), logger)
	if len(single) != 1 {
		t.Fatalf("expected 1 payload from single object, got %d", len(single))
	}

	array := DecodeBatch([]byte("["+samplePayload+","+samplePayload+"]"), logger)
	if len(array) != 2 {
		t.Fatalf("expected 2 payloads from array, got %d", len(array))
	}

	if got := DecodeBatch([]byte("not json"), logger); len(got) != 0 {
		t.Fatalf("expected no payloads for garbage input, got %d", len(got))
	}
}
