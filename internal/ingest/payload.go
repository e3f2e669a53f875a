// Package ingest imports message history from externally-shaped webhook
// payloads, the nested entry/changes/value batches a messaging provider
// emits. Ingestion is idempotent on the provider-assigned message id.
package ingest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/wireline-chat/wireline/internal/models"
)

// Payload is one provider webhook payload.
type Payload struct {
	MetaData MetaData `json:"metaData"`
}

// MetaData wraps the provider's entry list.
type MetaData struct {
	Entry []Entry `json:"entry"`
}

// Entry is one provider entry; each carries a list of changes.
type Entry struct {
	Changes []Change `json:"changes"`
}

// Change is a single field change. Only changes with Field "messages" carry
// message history.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value holds the message batch together with the contact and business-line
// metadata needed to resolve message direction.
type Value struct {
	Messages []ProviderMessage `json:"messages"`
	Contacts []Contact         `json:"contacts"`
	Metadata Metadata          `json:"metadata"`
}

// Metadata identifies the business line the payload belongs to.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
}

// Contact is the counterparty of the payload's messages.
type Contact struct {
	WaID    string         `json:"wa_id"`
	Profile ContactProfile `json:"profile"`
}

// ContactProfile carries the contact's display attributes.
type ContactProfile struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ProviderMessage is one message as the provider ships it. Timestamp is
// seconds since epoch, as a string.
type ProviderMessage struct {
	ID        string       `json:"id"`
	From      string       `json:"from"`
	Timestamp string       `json:"timestamp"`
	Text      *MessageText `json:"text"`
}

// MessageText wraps the text body.
type MessageText struct {
	Body string `json:"body"`
}

// Record is one message extracted from a payload, direction already resolved,
// ready to persist.
type Record struct {
	ExternalID string
	From       string
	To         string
	Content    string
	Timestamp  time.Time
	Profile    models.Profile
}

// Records extracts every persistable message record from a payload. Records
// missing the external id, sender or a parseable timestamp are dropped; that
// is the deliberate skip-if-incomplete policy, not an error.
func Records(p Payload) []Record {
	var out []Record

	for _, entry := range p.MetaData.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}

			business := change.Value.Metadata.DisplayPhoneNumber

			var contact Contact
			if len(change.Value.Contacts) > 0 {
				contact = change.Value.Contacts[0]
			}

			for _, msg := range change.Value.Messages {
				if msg.ID == "" || msg.From == "" {
					continue
				}

				seconds, err := strconv.ParseInt(msg.Timestamp, 10, 64)
				if err != nil {
					continue
				}

				content := ""
				if msg.Text != nil {
					content = msg.Text.Body
				}

				// Outgoing when the sender is the business line itself;
				// everything else is inbound to the business line.
				to := business
				if msg.From == business {
					to = contact.WaID
				}

				out = append(out, Record{
					ExternalID: msg.ID,
					From:       msg.From,
					To:         to,
					Content:    content,
					Timestamp:  time.Unix(seconds, 0).UTC(),
					Profile: models.Profile{
						Name:    contact.Profile.Name,
						Picture: contact.Profile.Picture,
						Number:  contact.WaID,
					},
				})
			}
		}
	}

	return out
}

// DecodeBatch parses raw JSON holding either a single payload or an array of
// payloads. Malformed elements are logged and skipped; one bad payload never
// aborts the rest of the batch.
func DecodeBatch(data []byte, logger zerolog.Logger) []Payload {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil
	}

	var raws []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			logger.Error().Err(err).Msg("payload batch is not valid JSON")
			return nil
		}
	} else {
		raws = []json.RawMessage{data}
	}

	payloads := make([]Payload, 0, len(raws))
	for i, raw := range raws {
		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			logger.Error().Err(err).Int("index", i).Msg("skipping malformed payload")
			continue
		}
		payloads = append(payloads, p)
	}

	return payloads
}
