package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradeviz/internal/core"

	_ "modernc.org/sqlite"
)

// DefaultHistoryLimit bounds ListRecentCharts when no limit is given.
const DefaultHistoryLimit = 50

type SQLiteRepository struct {
	db  *sql.DB
	dsn string
}

// dsnFor adds the connection pragmas shared by the server and the worker,
// which write to the same file from separate processes.
func dsnFor(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dsnFor(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, dsn: dsn}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveCategorySnapshot stores the category list unless it is identical to
// the latest snapshot. It reports whether a new row was written.
func (r *SQLiteRepository) SaveCategorySnapshot(ctx context.Context, cats []core.Category, fetchedAt time.Time) (bool, error) {
	payload, err := json.Marshal(cats)
	if err != nil {
		return false, fmt.Errorf("encode categories: %w", err)
	}
	sum := sha256.Sum256(payload)
	checksum := hex.EncodeToString(sum[:])

	var latest string
	err = r.db.QueryRowContext(ctx,
		`SELECT checksum FROM category_snapshots ORDER BY id DESC LIMIT 1`).Scan(&latest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("read latest snapshot: %w", err)
	}
	if latest == checksum {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO category_snapshots (checksum, item_count, payload, fetched_at) VALUES (?, ?, ?, ?)`,
		checksum, len(cats), string(payload), fetchedAt.UTC().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("insert category snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Category snapshot saved", "count", len(cats), "checksum", checksum[:12])
	return true, nil
}

// LatestCategorySnapshot returns the most recent stored category list.
// It returns sql.ErrNoRows when nothing was stored yet.
func (r *SQLiteRepository) LatestCategorySnapshot(ctx context.Context) ([]core.Category, time.Time, error) {
	var payload string
	var fetchedAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM category_snapshots ORDER BY id DESC LIMIT 1`).Scan(&payload, &fetchedAt)
	if err != nil {
		return nil, time.Time{}, err
	}

	var cats []core.Category
	if err := json.Unmarshal([]byte(payload), &cats); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode category snapshot: %w", err)
	}
	return cats, time.UnixMilli(fetchedAt).UTC(), nil
}

// RecordChart stores a rendered chart. Recording the same chart id twice is
// a no-op, so redelivered events are harmless.
func (r *SQLiteRepository) RecordChart(ctx context.Context, ev core.ChartEvent) (bool, error) {
	if strings.TrimSpace(ev.ChartID) == "" {
		return false, errors.New("chart event without chart id")
	}
	labels, err := json.Marshal(ev.Labels)
	if err != nil {
		return false, fmt.Errorf("encode labels: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO chart_history
			(chart_id, request_id, country, trade_type, category, records, segments, labels, total, rendered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ChartID, ev.RequestID, ev.Query.Country, ev.Query.TradeType, ev.Query.Category,
		ev.Records, ev.Segments, string(labels), ev.Total, ev.RenderedAt.UTC().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("insert chart history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListRecentCharts returns the newest charts first.
func (r *SQLiteRepository) ListRecentCharts(ctx context.Context, limit int) ([]core.ChartEvent, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT chart_id, request_id, country, trade_type, category, records, segments, labels, total, rendered_at
		FROM chart_history
		ORDER BY rendered_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query chart history: %w", err)
	}
	defer rows.Close()

	out := []core.ChartEvent{}
	for rows.Next() {
		var ev core.ChartEvent
		var labels string
		var renderedAt int64
		if err := rows.Scan(&ev.ChartID, &ev.RequestID, &ev.Query.Country, &ev.Query.TradeType, &ev.Query.Category,
			&ev.Records, &ev.Segments, &labels, &ev.Total, &renderedAt); err != nil {
			return nil, fmt.Errorf("scan chart history: %w", err)
		}
		if err := json.Unmarshal([]byte(labels), &ev.Labels); err != nil {
			return nil, fmt.Errorf("decode labels for %s: %w", ev.ChartID, err)
		}
		ev.RenderedAt = time.UnixMilli(renderedAt).UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chart history: %w", err)
	}
	return out, nil
}

// PruneHistory deletes charts rendered before cutoff and old category
// snapshots, keeping the newest snapshot. It returns the deleted chart count.
func (r *SQLiteRepository) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	ms := cutoff.UTC().UnixMilli()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM chart_history WHERE rendered_at < ?`, ms)
	if err != nil {
		return 0, fmt.Errorf("prune chart history: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM category_snapshots
		WHERE fetched_at < ? AND id <> (SELECT MAX(id) FROM category_snapshots)`, ms); err != nil {
		return 0, fmt.Errorf("prune category snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return deleted, nil
}
