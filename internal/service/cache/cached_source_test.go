package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"FundFlow/internal/domain/models"
	pcache "FundFlow/pkg/cache"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) FetchFundFlow(_ context.Context, stock models.StockInfo) (models.FundFlowTable, error) {
	s.calls++
	if s.err != nil {
		return models.FundFlowTable{}, s.err
	}
	row := models.FundFlowRow{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ClosePrice: null.FloatFrom(10.5)}
	row.NetAmount[models.ClassMain] = null.FloatFrom(1.5e8)
	return models.FundFlowTable{
		Code: stock.Code, Market: stock.Market, Name: "平安银行", Unit: models.UnitYuan,
		Columns: models.FullColumnSet(), Rows: []models.FundFlowRow{row},
	}, nil
}

type brokenCache struct{ pcache.Service }

func (brokenCache) Get(context.Context, string, interface{}) error { return errors.New("boom") }
func (brokenCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("boom")
}

type cacheRecorder struct{ results []string }

func (r *cacheRecorder) RecordFetch(string, string)    {}
func (r *cacheRecorder) RecordCache(result string)     { r.results = append(r.results, result) }
func (r *cacheRecorder) RecordArchived(string, int)    {}
func (r *cacheRecorder) RecordError(string)            {}
func (r *cacheRecorder) RecordLatency(string, float64) {}
func (r *cacheRecorder) RecordFragments(string, int)   {}

var stock = models.NewStockInfo("000001", models.MarketSZ)

func TestCachedSourceHitAfterMiss(t *testing.T) {
	fc, err := pcache.NewFileCache(pcache.WithFileDir(t.TempDir()), pcache.WithFileTTL(time.Hour))
	require.NoError(t, err)
	src := &countingSource{}
	rec := &cacheRecorder{}
	cs := NewCachedSource(src, fc, time.Hour, nil, rec)

	first, err := cs.FetchFundFlow(context.Background(), stock)
	require.NoError(t, err)
	second, err := cs.FetchFundFlow(context.Background(), stock)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, []string{"miss", "hit"}, rec.results)
	assert.Equal(t, first.Name, second.Name)
	require.Equal(t, 1, second.Len())
	assert.Equal(t, 1.5e8, second.Rows[0].NetAmount[models.ClassMain].Float64)
	assert.False(t, second.Rows[0].NetAmount[models.ClassSmall].Valid)
	assert.True(t, second.Rows[0].Date.Equal(first.Rows[0].Date))
	assert.True(t, second.Columns.Has(models.RatioColumn(models.ClassLarge)))
}

func TestCachedSourceInvalidate(t *testing.T) {
	mc := pcache.NewMemoryCache()
	defer mc.Close()
	src := &countingSource{}
	cs := NewCachedSource(src, mc, time.Hour, nil, nil)

	_, err := cs.FetchFundFlow(context.Background(), stock)
	require.NoError(t, err)
	require.NoError(t, cs.Invalidate(context.Background(), stock))
	_, err = cs.FetchFundFlow(context.Background(), stock)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCachedSourceBypassesBrokenCache(t *testing.T) {
	src := &countingSource{}
	rec := &cacheRecorder{}
	cs := NewCachedSource(src, brokenCache{}, time.Hour, nil, rec)

	table, err := cs.FetchFundFlow(context.Background(), stock)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, []string{"error"}, rec.results)
}

func TestCachedSourcePropagatesFetchError(t *testing.T) {
	want := errors.New("upstream down")
	cs := NewCachedSource(&countingSource{err: want}, pcache.NewMemoryCache(), time.Hour, nil, nil)
	_, err := cs.FetchFundFlow(context.Background(), stock)
	assert.ErrorIs(t, err, want)
}

func TestCachedSourceWithoutCache(t *testing.T) {
	src := &countingSource{}
	cs := NewCachedSource(src, nil, time.Hour, nil, nil)
	for i := 0; i < 2; i++ {
		_, err := cs.FetchFundFlow(context.Background(), stock)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, src.calls)
	assert.NoError(t, cs.Invalidate(context.Background(), stock))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "fundflow:600519:sh", Key(models.NewStockInfo("600519", models.MarketSH)))
}
