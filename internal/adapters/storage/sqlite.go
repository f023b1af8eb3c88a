package storage

// sqlite.go — SQLite persistence for the copy pipeline.
//
// Tables:
//   attempted_trades    — durable set of claimed source ids (the idempotency anchor)
//   executions          — one row per attempt: pending → success/failure
//   copied_trades       — success log; these rows are our own fills and feed the ledger
//   portfolio_snapshots — one row per tracker refresh
//
// The attempted-set write is the correctness anchor: MarkAttempted must be
// flushed before any order is submitted, so the connection runs with
// synchronous=FULL. A crash after the mark but before submission means the
// trade is simply never retried — the deliberate no-redo policy.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielrs/polycopy/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA synchronous = FULL;

CREATE TABLE IF NOT EXISTS attempted_trades (
    source_id    TEXT PRIMARY KEY,
    attempted_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS executions (
    source_id    TEXT PRIMARY KEY,
    attempted_at DATETIME NOT NULL,
    outcome      TEXT NOT NULL DEFAULT 'pending',
    order_id     TEXT NOT NULL DEFAULT '',
    condition_id TEXT NOT NULL DEFAULT '',
    token_id     TEXT NOT NULL DEFAULT '',
    side         TEXT NOT NULL DEFAULT '',
    price        REAL NOT NULL DEFAULT 0,
    token_size   REAL NOT NULL DEFAULT 0,
    usd_size     REAL NOT NULL DEFAULT 0,
    title        TEXT NOT NULL DEFAULT '',
    result       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_executions_outcome ON executions(outcome);

CREATE TABLE IF NOT EXISTS copied_trades (
    source_id    TEXT PRIMARY KEY,
    condition_id TEXT NOT NULL,
    token_id     TEXT NOT NULL,
    side         TEXT NOT NULL,
    price        REAL NOT NULL,
    size         REAL NOT NULL,
    title        TEXT,
    placed_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS portfolio_snapshots (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    taken_at       DATETIME NOT NULL,
    positions      INTEGER NOT NULL DEFAULT 0,
    total_value    REAL NOT NULL DEFAULT 0,
    total_cost     REAL NOT NULL DEFAULT 0,
    total_pnl      REAL NOT NULL DEFAULT 0,
    realized_pnl   REAL NOT NULL DEFAULT 0,
    unrealized_pnl REAL NOT NULL DEFAULT 0,
    win_rate       REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_snapshots_at ON portfolio_snapshots(taken_at DESC);
`

// SQLiteStore implementa ports.ExecutionTracker, ports.CopyLog,
// ports.SnapshotStore y ports.TradeProvider sobre SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AlreadyAttempted consulta el set durable de source ids reclamados.
func (s *SQLiteStore) AlreadyAttempted(ctx context.Context, sourceID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM attempted_trades WHERE source_id = ?`, sourceID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage.AlreadyAttempted: %w", err)
	}
	return n > 0, nil
}

// MarkAttempted reclama el source id de forma atómica (INSERT OR IGNORE en
// una transacción) y crea el registro pending. claimed=false significa que
// otro tick — o una ejecución anterior al reinicio — llegó primero.
func (s *SQLiteStore) MarkAttempted(ctx context.Context, sourceID string) (bool, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("storage.MarkAttempted: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO attempted_trades (source_id, attempted_at) VALUES (?, ?)`,
		sourceID, now,
	)
	if err != nil {
		return false, fmt.Errorf("storage.MarkAttempted: insert: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage.MarkAttempted: rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil // ya reclamado
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO executions (source_id, attempted_at, outcome) VALUES (?, ?, ?)`,
		sourceID, now, string(domain.OutcomePending),
	); err != nil {
		return false, fmt.Errorf("storage.MarkAttempted: insert execution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("storage.MarkAttempted: commit: %w", err)
	}
	return true, nil
}

// RecordOutcome actualiza el registro de ejecución con el resultado y los
// detalles de la orden. No toca el set de attempted.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, rec domain.ExecutionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE executions SET
			outcome      = ?,
			order_id     = ?,
			condition_id = ?,
			token_id     = ?,
			side         = ?,
			price        = ?,
			token_size   = ?,
			usd_size     = ?,
			title        = ?,
			result       = ?
		WHERE source_id = ?`,
		string(rec.Outcome),
		rec.Order.ID,
		rec.Order.ConditionID,
		rec.Order.TokenID,
		string(rec.Order.Side),
		rec.Order.Price,
		rec.Order.TokenSize,
		rec.Order.USDSize,
		rec.Order.Title,
		rec.Result,
		rec.SourceID,
	)
	if err != nil {
		return fmt.Errorf("storage.RecordOutcome: %s: %w", rec.SourceID, err)
	}
	return nil
}

// Executions devuelve los registros con el outcome dado, más recientes
// primero. outcome vacío devuelve todos.
func (s *SQLiteStore) Executions(ctx context.Context, outcome domain.Outcome) ([]domain.ExecutionRecord, error) {
	query := `
		SELECT source_id, attempted_at, outcome, order_id, condition_id,
		       token_id, side, price, token_size, usd_size, title, result
		FROM executions`
	args := []any{}
	if outcome != "" {
		query += ` WHERE outcome = ?`
		args = append(args, string(outcome))
	}
	query += ` ORDER BY attempted_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.Executions: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.ExecutionRecord
	for rows.Next() {
		var rec domain.ExecutionRecord
		var attemptedAt, out, side string
		if err := rows.Scan(
			&rec.SourceID,
			&attemptedAt,
			&out,
			&rec.Order.ID,
			&rec.Order.ConditionID,
			&rec.Order.TokenID,
			&side,
			&rec.Order.Price,
			&rec.Order.TokenSize,
			&rec.Order.USDSize,
			&rec.Order.Title,
			&rec.Result,
		); err != nil {
			return nil, fmt.Errorf("storage.Executions: scan: %w", err)
		}
		rec.Outcome = domain.Outcome(out)
		rec.Order.Side = domain.Side(side)
		rec.Order.SourceID = rec.SourceID
		rec.AttemptedAt = parseStoredTime(attemptedAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// SaveCopiedFill añade una orden colocada con éxito al log de copias.
// Estas filas son nuestros propios fills: FetchFills las devuelve al ledger.
func (s *SQLiteStore) SaveCopiedFill(ctx context.Context, fill domain.Fill) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO copied_trades
			(source_id, condition_id, token_id, side, price, size, title, placed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fill.SourceID,
		fill.ConditionID,
		fill.TokenID,
		string(fill.Side),
		fill.Price,
		fill.Size,
		fill.Title,
		fill.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveCopiedFill: %s: %w", fill.SourceID, err)
	}
	return nil
}

// FetchFills implementa ports.TradeProvider sobre el log de copias:
// el ledger del tracker se reconstruye solo con trades copiados por nosotros.
func (s *SQLiteStore) FetchFills(ctx context.Context) ([]domain.Fill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, condition_id, token_id, side, price, size, title, placed_at
		FROM copied_trades
		ORDER BY placed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.FetchFills: query: %w", err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var f domain.Fill
		var side, placedAt string
		var title sql.NullString
		if err := rows.Scan(&f.SourceID, &f.ConditionID, &f.TokenID, &side,
			&f.Price, &f.Size, &title, &placedAt); err != nil {
			return nil, fmt.Errorf("storage.FetchFills: scan: %w", err)
		}
		f.Side = domain.Side(side)
		f.Title = title.String
		f.Timestamp = parseStoredTime(placedAt)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// SavePortfolioSnapshot persiste un refresco del tracker. Los snapshots
// stale no se guardan — son el snapshot anterior reetiquetado.
func (s *SQLiteStore) SavePortfolioSnapshot(ctx context.Context, snap domain.PortfolioSnapshot) error {
	if snap.Stale {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots
			(taken_at, positions, total_value, total_cost, total_pnl,
			 realized_pnl, unrealized_pnl, win_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.TakenAt.UTC(),
		len(snap.Positions),
		snap.TotalValue,
		snap.TotalCost,
		snap.TotalPnL,
		snap.RealizedPnL,
		snap.UnrealizedPnL,
		snap.WinRate,
	)
	if err != nil {
		return fmt.Errorf("storage.SavePortfolioSnapshot: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// parseStoredTime parsea los formatos de fecha que devuelve el driver.
func parseStoredTime(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
