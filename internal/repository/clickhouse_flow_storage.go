package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FundFlow/internal/domain/models"
	"FundFlow/internal/domain/repository"
	"FundFlow/pkg/clickhouse"
)

const maxQueryRows = 100000

// ClickHouseFlowStorage keeps raw daily rows in a ReplacingMergeTree keyed by
// (code, date); re-archiving a day replaces the older version.
type ClickHouseFlowStorage struct {
	client *clickhouse.Client
	table  string
}

var _ repository.FlowStorage = (*ClickHouseFlowStorage)(nil)

func NewClickHouseFlowStorage(client *clickhouse.Client, table string) *ClickHouseFlowStorage {
	if table == "" {
		table = "fundflow_daily"
	}
	return &ClickHouseFlowStorage{client: client, table: table}
}

func (s *ClickHouseFlowStorage) schema() []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.table)
	b.WriteString("\tcode LowCardinality(String),\n\tmarket LowCardinality(String),\n\tdate Date,\n\tname String,\n")
	for _, col := range flowColumns[1:] {
		fmt.Fprintf(&b, "\t%s Nullable(Float64),\n", col)
	}
	b.WriteString("\tingested_at DateTime64(3) DEFAULT now64(3)\n")
	b.WriteString(") ENGINE = ReplacingMergeTree(ingested_at)\nPARTITION BY toYYYYMM(date)\nORDER BY (code, date)")
	return []string{b.String()}
}

func (s *ClickHouseFlowStorage) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, s.schema())
}

// StoreSnapshot inserts every row of t in one batch.
func (s *ClickHouseFlowStorage) StoreSnapshot(ctx context.Context, t models.FundFlowTable) error {
	if err := rawOnly(t); err != nil {
		return err
	}
	if t.Len() == 0 {
		return nil
	}

	db := s.client.DB()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clickhouse begin: %w", err)
	}
	cols := insertColumns()
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(cols, ", "), placeholders(len(cols))))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clickhouse prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, rowArgs(t, row, row.Date)...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clickhouse append %s %s: %w", t.Code, row.DateKey(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clickhouse commit: %w", err)
	}
	return nil
}

// Query returns rows of code within [from, to], most recent first. A zero
// bound is open.
func (s *ClickHouseFlowStorage) Query(ctx context.Context, code string, from, to time.Time, limit int) ([]models.FundFlowRow, error) {
	// Date covers 1970-01-01 to 2149-06-06
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Date(2149, 6, 6, 0, 0, 0, 0, time.UTC)
	}
	if limit <= 0 {
		limit = maxQueryRows
	}
	q := fmt.Sprintf("SELECT date, %s FROM %s FINAL WHERE code = ? AND date >= ? AND date <= ? ORDER BY date DESC LIMIT ?",
		strings.Join(flowColumns, ", "), s.table)
	rows, err := s.client.DB().QueryContext(ctx, q, code, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("clickhouse query: %w", err)
	}
	defer rows.Close()

	var out []models.FundFlowRow
	for rows.Next() {
		r, err := scanFlowRow(rows, timeDate)
		if err != nil {
			return nil, fmt.Errorf("clickhouse scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ClickHouseFlowStorage) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseFlowStorage) Close() error {
	return s.client.Close()
}
