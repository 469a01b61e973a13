// Package store implements the optional LogSink (spec §6): persisting
// completed Prediction envelopes to Postgres via pkg/database, the
// reference's pgxpool-backed connection wrapper kept verbatim for
// connection management.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/marketoracle/forecast/internal/contracts"
	"github.com/marketoracle/forecast/pkg/database"
	"github.com/marketoracle/forecast/pkg/logger"
)

// minWriteInterval is the client-side write throttle spec §11.4
// recommends: at most one Record per interval, so a burst of
// low-latency predictions can't hammer the connection pool.
const minWriteInterval = 5 * time.Second

// PostgresLogSink implements contracts.LogSink by inserting one row
// per Prediction into the predictions table. Optional end to end:
// pipeline.Coordinator takes a nilable LogSink and behaves identically
// with or without one configured.
type PostgresLogSink struct {
	db     *database.DB
	logger *logger.Logger

	mu       sync.Mutex
	lastWrite time.Time
}

// NewPostgresLogSink wraps an already-connected DB.
func NewPostgresLogSink(db *database.DB, log *logger.Logger) *PostgresLogSink {
	return &PostgresLogSink{db: db, logger: log.WithField("component", "store.PostgresLogSink")}
}

// EnsureSchema creates the predictions table if it doesn't already
// exist. Safe to call on every startup.
func (s *PostgresLogSink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS predictions (
			id               BIGSERIAL PRIMARY KEY,
			market_slug      TEXT NOT NULL,
			question         TEXT NOT NULL,
			family_type      TEXT NOT NULL,
			category         TEXT NOT NULL,
			trade_signal     TEXT,
			low_probability  BOOLEAN NOT NULL,
			timed_out        BOOLEAN NOT NULL,
			outcomes         JSONB NOT NULL,
			notices          JSONB NOT NULL,
			recorded_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure predictions schema: %w", err)
	}
	return nil
}

// Record inserts one row for p, skipping the write (without error) if
// called again within minWriteInterval of the previous write.
func (s *PostgresLogSink) Record(ctx context.Context, p *contracts.Prediction) error {
	s.mu.Lock()
	if !s.lastWrite.IsZero() && time.Since(s.lastWrite) < minWriteInterval {
		s.mu.Unlock()
		s.logger.Debug("skipping prediction write, inside throttle window")
		return nil
	}
	s.lastWrite = time.Now()
	s.mu.Unlock()

	outcomesJSON, err := json.Marshal(p.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}
	noticesJSON, err := json.Marshal(p.Notices)
	if err != nil {
		return fmt.Errorf("marshal notices: %w", err)
	}

	var signal string
	if p.TradeSignal != nil {
		signal = string(p.TradeSignal.Signal)
	}

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO predictions
			(market_slug, question, family_type, category, trade_signal, low_probability, timed_out, outcomes, notices)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		p.Event.MarketSlug,
		p.Event.Question,
		string(p.Event.FamilyType),
		string(p.Event.Category),
		signal,
		p.LowProbability,
		p.TimedOut,
		outcomesJSON,
		noticesJSON,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}
