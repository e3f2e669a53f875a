// Command import reads provider payload files (*.json) from a directory and
// ingests them into the configured store. Re-running over the same files is a
// no-op thanks to external-id idempotency.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wireline-chat/wireline/internal/config"
	"github.com/wireline-chat/wireline/internal/ingest"
	"github.com/wireline-chat/wireline/internal/store"
)

func main() {
	dir := flag.String("dir", "./payloads", "directory containing payload *.json files")
	flag.Parse()

	cfg := config.Load()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	ctx := context.Background()

	var db store.DataStore
	var err error
	switch {
	case cfg.MongoURL != "":
		db, err = store.NewMongoStore(ctx, cfg.MongoURL)
	case cfg.DatabaseURL != "":
		db, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		db, err = store.NewSQLiteStore(ctx, cfg.SQLitePath)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("store connection failed")
	}
	defer db.Close()

	entries, err := os.ReadDir(*dir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", *dir).Msg("cannot read payload directory")
	}

	var payloads []ingest.Payload
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(*dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("skipping unreadable file")
			continue
		}

		payloads = append(payloads, ingest.DecodeBatch(data, logger)...)
	}

	if len(payloads) == 0 {
		logger.Warn().Str("dir", *dir).Msg("no payloads found")
		return
	}

	inserted, err := ingest.NewImporter(db, logger).Run(ctx, payloads)
	if err != nil {
		logger.Fatal().Err(err).Msg("import aborted")
	}

	logger.Info().
		Int("payloads", len(payloads)).
		Int("inserted", inserted).
		Msg("import completed")
}
