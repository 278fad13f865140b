package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"nivesh/internal/backtest"
	"nivesh/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ SignalStore = (*SQLiteStore)(nil)
var _ ConsensusStore = (*SQLiteStore)(nil)
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements SignalStore, ConsensusStore, and ResultStore backed
// by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol        TEXT NOT NULL,
	strategy      TEXT NOT NULL,
	type          TEXT NOT NULL,
	confidence    REAL NOT NULL,
	entry_price   REAL NOT NULL,
	target_price  REAL NOT NULL,
	stop_loss     REAL NOT NULL,
	generated_at  TEXT NOT NULL,
	metadata      TEXT
);
CREATE INDEX IF NOT EXISTS idx_signals_strategy ON signals(strategy, generated_at DESC);

CREATE TABLE IF NOT EXISTS consensus_signals (
	symbol                 TEXT NOT NULL,
	type                   TEXT NOT NULL,
	consensus_confidence   REAL NOT NULL,
	agreement_ratio        REAL NOT NULL,
	supporting_strategies  INTEGER NOT NULL,
	total_strategies       INTEGER NOT NULL,
	entry_price            REAL NOT NULL,
	target_price           REAL NOT NULL,
	stop_loss              REAL NOT NULL,
	composite_score        REAL NOT NULL,
	quality_tier           TEXT NOT NULL,
	generated_at           TEXT NOT NULL,
	PRIMARY KEY (generated_at, symbol)
);

CREATE TABLE IF NOT EXISTS backtest_results (
	run_id           TEXT PRIMARY KEY,
	start_date       TEXT NOT NULL,
	end_date         TEXT NOT NULL,
	initial_capital  REAL NOT NULL,
	final_capital    REAL NOT NULL,
	created_at       TEXT NOT NULL,
	result           TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// SignalStore implementation
// ---------------------------------------------------------------------------

// SaveSignals inserts a batch of signals in a single transaction.
func (s *SQLiteStore) SaveSignals(ctx context.Context, signals []domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (symbol, strategy, type, confidence, entry_price,
			target_price, stop_loss, generated_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sig := range signals {
		var meta []byte
		if sig.Metadata != nil {
			meta, err = json.Marshal(sig.Metadata)
			if err != nil {
				return fmt.Errorf("marshaling metadata for %s/%s: %w", sig.Strategy, sig.Symbol, err)
			}
		}
		_, err = stmt.ExecContext(ctx,
			sig.Symbol, sig.Strategy, string(sig.Type), sig.Confidence,
			sig.EntryPrice, sig.TargetPrice, sig.StopLoss,
			sig.GeneratedAt.UTC().Format(time.RFC3339Nano), nullableString(meta))
		if err != nil {
			return fmt.Errorf("inserting signal %s/%s: %w", sig.Strategy, sig.Symbol, err)
		}
	}
	return tx.Commit()
}

// ListSignals returns the most recent signals for a strategy, up to limit.
// An empty strategy matches all strategies.
func (s *SQLiteStore) ListSignals(ctx context.Context, strategy string, limit int) ([]domain.Signal, error) {
	query := `
		SELECT symbol, strategy, type, confidence, entry_price,
			target_price, stop_loss, generated_at, metadata
		FROM signals`
	args := []any{}
	if strategy != "" {
		query += ` WHERE strategy = ?`
		args = append(args, strategy)
	}
	query += ` ORDER BY generated_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.Signal
	for rows.Next() {
		var sig domain.Signal
		var typ, generatedAt string
		var meta sql.NullString
		if err := rows.Scan(&sig.Symbol, &sig.Strategy, &typ, &sig.Confidence,
			&sig.EntryPrice, &sig.TargetPrice, &sig.StopLoss, &generatedAt, &meta); err != nil {
			return nil, err
		}
		sig.Type = domain.SignalType(typ)
		sig.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing generated_at %q: %w", generatedAt, err)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &sig.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata for %s/%s: %w", sig.Strategy, sig.Symbol, err)
			}
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// ---------------------------------------------------------------------------
// ConsensusStore implementation
// ---------------------------------------------------------------------------

// SaveConsensus inserts a consensus set. Signals sharing a generation time
// and symbol replace their previous row.
func (s *SQLiteStore) SaveConsensus(ctx context.Context, signals []domain.ConsensusSignal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO consensus_signals (symbol, type,
			consensus_confidence, agreement_ratio, supporting_strategies,
			total_strategies, entry_price, target_price, stop_loss,
			composite_score, quality_tier, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, cs := range signals {
		_, err = stmt.ExecContext(ctx,
			cs.Symbol, string(cs.Type), cs.ConsensusConfidence, cs.AgreementRatio,
			cs.SupportingStrategies, cs.TotalStrategies, cs.EntryPrice,
			cs.TargetPrice, cs.StopLoss, cs.CompositeScore, string(cs.QualityTier),
			cs.GeneratedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("inserting consensus for %s: %w", cs.Symbol, err)
		}
	}
	return tx.Commit()
}

// LatestConsensus returns the consensus set with the most recent generation
// time, ordered by descending composite score.
func (s *SQLiteStore) LatestConsensus(ctx context.Context) ([]domain.ConsensusSignal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, type, consensus_confidence, agreement_ratio,
			supporting_strategies, total_strategies, entry_price,
			target_price, stop_loss, composite_score, quality_tier, generated_at
		FROM consensus_signals
		WHERE generated_at = (SELECT MAX(generated_at) FROM consensus_signals)
		ORDER BY composite_score DESC, symbol ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.ConsensusSignal
	for rows.Next() {
		var cs domain.ConsensusSignal
		var typ, tier, generatedAt string
		if err := rows.Scan(&cs.Symbol, &typ, &cs.ConsensusConfidence,
			&cs.AgreementRatio, &cs.SupportingStrategies, &cs.TotalStrategies,
			&cs.EntryPrice, &cs.TargetPrice, &cs.StopLoss, &cs.CompositeScore,
			&tier, &generatedAt); err != nil {
			return nil, err
		}
		cs.Type = domain.SignalType(typ)
		cs.QualityTier = domain.QualityTier(tier)
		cs.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing generated_at %q: %w", generatedAt, err)
		}
		signals = append(signals, cs)
	}
	return signals, rows.Err()
}

// ---------------------------------------------------------------------------
// ResultStore implementation
// ---------------------------------------------------------------------------

// SaveResult inserts a completed backtest result. The full result, including
// trades and the equity curve, is stored as a JSON document alongside the
// summary columns.
func (s *SQLiteStore) SaveResult(ctx context.Context, result *backtest.Result) error {
	doc, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result %s: %w", result.RunID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backtest_results (run_id, start_date, end_date,
			initial_capital, final_capital, created_at, result)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.StartDate.UTC().Format(time.RFC3339),
		result.EndDate.UTC().Format(time.RFC3339),
		result.InitialCapital, result.FinalCapital,
		time.Now().UTC().Format(time.RFC3339Nano),
		string(doc))
	if err != nil {
		return fmt.Errorf("inserting result %s: %w", result.RunID, err)
	}
	return nil
}

// GetResult retrieves a backtest result by its run ID. It returns
// sql.ErrNoRows when no such run exists.
func (s *SQLiteStore) GetResult(ctx context.Context, runID string) (*backtest.Result, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM backtest_results WHERE run_id = ?`, runID).Scan(&doc)
	if err != nil {
		return nil, err
	}

	var result backtest.Result
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return nil, fmt.Errorf("unmarshaling result %s: %w", runID, err)
	}
	return &result, nil
}

// ListResults returns the most recent runs, newest first, up to limit. The
// returned results carry summary fields only; Trades and EquityCurve are
// left empty.
func (s *SQLiteStore) ListResults(ctx context.Context, limit int) ([]backtest.Result, error) {
	query := `
		SELECT run_id, start_date, end_date, initial_capital, final_capital
		FROM backtest_results
		ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []backtest.Result
	for rows.Next() {
		var r backtest.Result
		var start, end string
		if err := rows.Scan(&r.RunID, &start, &end, &r.InitialCapital, &r.FinalCapital); err != nil {
			return nil, err
		}
		if r.StartDate, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("parsing start_date %q: %w", start, err)
		}
		if r.EndDate, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, fmt.Errorf("parsing end_date %q: %w", end, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// nullableString converts an empty byte slice to a SQL NULL.
func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
