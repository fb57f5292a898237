package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"pivot_backtest/internal/models"
	"pivot_backtest/internal/modules/recorder/service/pg/trades"
)

// SQLiteRecorder: локальная база прогонов, без сервера.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[REC] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			pivots      INTEGER NOT NULL,
			failures    INTEGER NOT NULL,
			summary     TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			pair         TEXT NOT NULL,
			htf          TEXT NOT NULL,
			direction    TEXT NOT NULL,
			entry_source TEXT NOT NULL,
			pivot_time   INTEGER NOT NULL,
			entry_time   INTEGER NOT NULL,
			entry_price  REAL,
			sl_price     REAL,
			tp_price     REAL,
			exit_time    INTEGER NOT NULL,
			exit_price   REAL,
			exit_reason  TEXT,
			pnl_pips     REAL,
			pnl_r        REAL,
			meta         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) Name() string { return "sqlite" }

func (r *SQLiteRecorder) Record(ctx context.Context, res *models.Result) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary, err := sonic.MarshalString(res.Summary)
	if err != nil {
		return errors.Wrap(err, "marshal summary")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "commit")
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO backtest_runs
		(id, started_at, finished_at, pivots, failures, summary)
		VALUES (?,?,?,?,?,?)`,
		res.RunID, res.StartedAt.Unix(), res.FinishedAt.Unix(), res.Pivots, res.Failures, summary,
	)
	if err != nil {
		return errors.Wrap(err, "insert run")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO trades
		(run_id, pair, htf, direction, entry_source, pivot_time, entry_time,
		 entry_price, sl_price, tp_price, exit_time, exit_price, exit_reason,
		 pnl_pips, pnl_r, meta)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return errors.Wrap(err, "prepare trade insert")
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i := range res.Trades {
		t := &res.Trades[i]
		var meta string
		if meta, err = sonic.MarshalString(trades.MetaOf(t)); err != nil {
			return errors.Wrap(err, "marshal meta")
		}
		_, err = stmt.ExecContext(ctx,
			res.RunID, t.Pair, string(t.HTF), string(t.Direction), t.EntrySource,
			t.PivotTime.Unix(), t.EntryTime.Unix(),
			t.EntryPrice, t.SL, t.TP, t.ExitTime.Unix(), t.ExitPrice, string(t.ExitReason),
			t.PnLPips, t.PnLR, meta,
		)
		if err != nil {
			return errors.Wrapf(err, "insert trade %s %s", t.Pair, t.EntryTime)
		}
	}
	return nil
}

// CountTrades: для проверок и health.
func (r *SQLiteRecorder) CountTrades(ctx context.Context, runID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[REC] closing sqlite recorder")
	return r.db.Close()
}
