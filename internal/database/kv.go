package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"rent-ledger-go/internal/store"

	"go.uber.org/zap"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same entry
// operations serve auto-committed reads and transactional work.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func hasEntry(ctx context.Context, q querier, d store.Durability, key store.Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	var one int
	err := q.QueryRowContext(ctx, queryHasEntry, d.String(), key.Encode()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check entry %s: %w", key, err)
	}
	return true, nil
}

func getEntry(ctx context.Context, q querier, d store.Durability, key store.Key, out any) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	var raw string
	err := q.QueryRowContext(ctx, queryGetEntry, d.String(), key.Encode()).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load entry %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("failed to decode entry %s: %w", key, err)
	}
	return true, nil
}

func setEntry(ctx context.Context, q querier, d store.Durability, key store.Key, value any) error {
	if err := key.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode entry %s: %w", key, err)
	}
	if _, err := q.ExecContext(ctx, queryUpsertEntry, d.String(), key.Encode(), string(raw)); err != nil {
		return fmt.Errorf("failed to store entry %s: %w", key, err)
	}
	return nil
}

func extendTTL(ctx context.Context, q querier, d store.Durability, key store.Key, liveUntil time.Time) error {
	if err := key.Validate(); err != nil {
		return err
	}
	deadline := liveUntil.Unix()
	if _, err := q.ExecContext(ctx, queryExtendTTL, deadline, d.String(), key.Encode(), deadline); err != nil {
		return fmt.Errorf("failed to extend ttl of entry %s: %w", key, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Auto-committed reads on *Service
// ---------------------------------------------------------------------------

func (s *Service) Has(ctx context.Context, d store.Durability, key store.Key) (bool, error) {
	return hasEntry(ctx, s.db, d, key)
}

func (s *Service) Get(ctx context.Context, d store.Durability, key store.Key, out any) (bool, error) {
	return getEntry(ctx, s.db, d, key, out)
}

// Update runs fn inside a single SQLite transaction. This is the atomic
// unit every ledger operation relies on: either every Set lands or none.
func (s *Service) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&entryTx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Prune removes entries whose archival deadline has passed. Entries never
// granted a deadline via ExtendTTL are kept forever; this is maintenance
// for archival-managed state, invoked by operators, never by the core.
func (s *Service) Prune(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryPruneExpired, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune expired entries: %w", err)
	}
	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned entries: %w", err)
	}
	if pruned > 0 {
		zap.L().Info("Pruned expired entries", zap.Int64("count", pruned))
	}
	return pruned, nil
}

// ---------------------------------------------------------------------------
// Transactional view
// ---------------------------------------------------------------------------

type entryTx struct {
	tx *sql.Tx
}

var _ store.Tx = (*entryTx)(nil)

func (t *entryTx) Has(ctx context.Context, d store.Durability, key store.Key) (bool, error) {
	return hasEntry(ctx, t.tx, d, key)
}

func (t *entryTx) Get(ctx context.Context, d store.Durability, key store.Key, out any) (bool, error) {
	return getEntry(ctx, t.tx, d, key, out)
}

func (t *entryTx) Set(ctx context.Context, d store.Durability, key store.Key, value any) error {
	return setEntry(ctx, t.tx, d, key, value)
}

func (t *entryTx) ExtendTTL(ctx context.Context, d store.Durability, key store.Key, liveUntil time.Time) error {
	return extendTTL(ctx, t.tx, d, key, liveUntil)
}
