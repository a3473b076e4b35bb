package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FundFlow/internal/domain/models"
	"FundFlow/internal/domain/repository"
	"FundFlow/pkg/sqlite"
)

// SQLiteFlowStorage keeps raw daily rows in a local SQLite file with one row
// per (code, date); later snapshots overwrite earlier values.
type SQLiteFlowStorage struct {
	client *sqlite.Client
	table  string
}

var _ repository.FlowStorage = (*SQLiteFlowStorage)(nil)

func NewSQLiteFlowStorage(client *sqlite.Client) *SQLiteFlowStorage {
	return &SQLiteFlowStorage{client: client, table: "fundflow_daily"}
}

func (s *SQLiteFlowStorage) Init(ctx context.Context) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.table)
	b.WriteString("\tcode TEXT NOT NULL,\n\tmarket TEXT NOT NULL,\n\tdate TEXT NOT NULL,\n\tname TEXT NOT NULL DEFAULT '',\n")
	for _, col := range flowColumns[1:] {
		fmt.Fprintf(&b, "\t%s REAL,\n", col)
	}
	b.WriteString("\tingested_at TEXT NOT NULL,\n\tPRIMARY KEY (code, date)\n)")
	return s.client.InitSchema(ctx, []string{b.String()})
}

func (s *SQLiteFlowStorage) upsertSQL() string {
	cols := append(insertColumns(), "ingested_at")
	updates := make([]string, 0, len(flowColumns)+2)
	for _, col := range append([]string{"market"}, flowColumns...) {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	updates = append(updates, "ingested_at = excluded.ingested_at")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)\nON CONFLICT(code, date) DO UPDATE SET %s",
		s.table, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(updates, ", "))
}

// StoreSnapshot upserts every row of t in one transaction.
func (s *SQLiteFlowStorage) StoreSnapshot(ctx context.Context, t models.FundFlowTable) (err error) {
	if err := rawOnly(t); err != nil {
		return err
	}
	if t.Len() == 0 {
		return nil
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.upsertSQL())
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, row := range t.Rows {
		args := append(rowArgs(t, row, row.DateKey()), now)
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("sqlite upsert %s %s: %w", t.Code, row.DateKey(), err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

// Query returns rows of code within [from, to], most recent first. A zero
// bound is open.
func (s *SQLiteFlowStorage) Query(ctx context.Context, code string, from, to time.Time, limit int) ([]models.FundFlowRow, error) {
	lo, hi := "0000-00-00", "9999-99-99"
	if !from.IsZero() {
		lo = from.Format(models.DateLayout)
	}
	if !to.IsZero() {
		hi = to.Format(models.DateLayout)
	}
	if limit <= 0 {
		limit = -1
	}
	q := fmt.Sprintf("SELECT date, %s FROM %s WHERE code = ? AND date >= ? AND date <= ? ORDER BY date DESC LIMIT ?",
		strings.Join(flowColumns, ", "), s.table)
	rows, err := s.client.DB().QueryContext(ctx, q, code, lo, hi, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()

	var out []models.FundFlowRow
	for rows.Next() {
		r, err := scanFlowRow(rows, timeDate)
		if err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteFlowStorage) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *SQLiteFlowStorage) Close() error {
	return s.client.Close()
}
