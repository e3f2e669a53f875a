package ingest

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/wireline-chat/wireline/internal/models"
	"github.com/wireline-chat/wireline/internal/store"
)

// Importer persists payload batches. Safe to re-run over the same or
// overlapping batches: a record whose external id is already stored is a
// no-op.
type Importer struct {
	db     store.DataStore
	logger zerolog.Logger
}

// NewImporter creates an Importer.
func NewImporter(db store.DataStore, logger zerolog.Logger) *Importer {
	return &Importer{db: db, logger: logger}
}

// Run ingests the given payloads and returns the number of messages actually
// inserted; skipped records (incomplete, already present) are not counted.
// Store failures on one record are logged and do not abort the batch.
func (im *Importer) Run(ctx context.Context, payloads []Payload) (int, error) {
	inserted := 0

	for _, payload := range payloads {
		for _, rec := range Records(payload) {
			if err := ctx.Err(); err != nil {
				return inserted, err
			}

			existing, err := im.db.GetMessageByExternalID(ctx, rec.ExternalID)
			if err != nil {
				im.logger.Error().Err(err).Str("external_id", rec.ExternalID).Msg("lookup failed, skipping record")
				continue
			}
			if existing != nil {
				continue
			}

			msg := &models.Message{
				ExternalID:      rec.ExternalID,
				From:            rec.From,
				To:              rec.To,
				Content:         rec.Content,
				Timestamp:       rec.Timestamp,
				Status:          models.StatusSent,
				ReceiverProfile: rec.Profile,
			}

			if err := im.db.InsertMessage(ctx, msg); err != nil {
				// A concurrent import beat us to this external id.
				if errors.Is(err, store.ErrDuplicateKey) {
					continue
				}
				im.logger.Error().Err(err).Str("external_id", rec.ExternalID).Msg("insert failed, skipping record")
				continue
			}

			inserted++
		}
	}

	return inserted, nil
}
