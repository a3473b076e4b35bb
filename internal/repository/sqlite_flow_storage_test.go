package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"FundFlow/internal/domain/models"
	"FundFlow/pkg/sqlite"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func snapshot(code string, days ...int) models.FundFlowTable {
	t := models.FundFlowTable{
		Code: code, Market: models.MarketSH, Name: "贵州茅台", Unit: models.UnitYuan,
		Columns: models.FullColumnSet(),
	}
	for _, d := range days {
		r := models.FundFlowRow{Date: day(d), ClosePrice: null.FloatFrom(1700 + float64(d)), ChangePct: null.FloatFrom(0.5)}
		for i, c := range models.FlowClasses {
			r.NetAmount[c] = null.FloatFrom(float64(d*1e6 + i))
			r.NetRatio[c] = null.FloatFrom(float64(i) + 0.25)
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func newSQLiteStorage(t *testing.T) *SQLiteFlowStorage {
	t.Helper()
	c, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "flow.db"))
	require.NoError(t, err)
	s := NewSQLiteFlowStorage(c)
	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreAndQuery(t *testing.T) {
	s := newSQLiteStorage(t)
	ctx := context.Background()

	snap := snapshot("600519", 1, 4, 5)
	snap.Rows[1].NetAmount[models.ClassSmall] = null.Float{}
	require.NoError(t, s.StoreSnapshot(ctx, snap))
	require.NoError(t, s.StoreSnapshot(ctx, snapshot("000001", 1)))

	rows, err := s.Query(ctx, "600519", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-03-05", rows[0].DateKey())
	assert.Equal(t, "2024-03-01", rows[2].DateKey())

	r4 := rows[1]
	assert.Equal(t, 1704.0, r4.ClosePrice.Float64)
	assert.Equal(t, 4e6, r4.NetAmount[models.ClassMain].Float64)
	assert.False(t, r4.NetAmount[models.ClassSmall].Valid)
	assert.Equal(t, 4.25, r4.NetRatio[models.ClassSmall].Float64)
}

func TestSQLiteUpsertAndRange(t *testing.T) {
	s := newSQLiteStorage(t)
	ctx := context.Background()

	require.NoError(t, s.StoreSnapshot(ctx, snapshot("600519", 1, 4)))
	updated := snapshot("600519", 4, 5)
	updated.Rows[0].ClosePrice = null.FloatFrom(1.0)
	require.NoError(t, s.StoreSnapshot(ctx, updated))

	rows, err := s.Query(ctx, "600519", day(2), day(5), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1.0, rows[1].ClosePrice.Float64)

	rows, err = s.Query(ctx, "600519", time.Time{}, time.Time{}, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03-05", rows[0].DateKey())
}

func TestSQLiteRejectsNormalized(t *testing.T) {
	s := newSQLiteStorage(t)
	snap := snapshot("600519", 1)
	snap.Unit = models.UnitYi
	assert.Error(t, s.StoreSnapshot(context.Background(), snap))
	assert.NoError(t, s.StoreSnapshot(context.Background(), snapshot("600519")))
}

func TestClickHouseSchema(t *testing.T) {
	s := NewClickHouseFlowStorage(nil, "")
	ddl := s.schema()[0]
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS fundflow_daily")
	assert.Contains(t, ddl, "main_net_amount Nullable(Float64)")
	assert.Contains(t, ddl, "small_net_ratio Nullable(Float64)")
	assert.Contains(t, ddl, "ReplacingMergeTree(ingested_at)")
	assert.Contains(t, ddl, "ORDER BY (code, date)")
}

func TestRowArgsOrder(t *testing.T) {
	snap := snapshot("600519", 1)
	snap.Rows[0].ChangePct = null.Float{}
	args := rowArgs(snap, snap.Rows[0], "2024-03-01")
	require.Len(t, args, len(insertColumns()))
	assert.Equal(t, "600519", args[0])
	assert.Equal(t, "sh", args[1])
	assert.Equal(t, "2024-03-01", args[2])
	assert.Equal(t, "贵州茅台", args[3])
	assert.Nil(t, args[5])
}
