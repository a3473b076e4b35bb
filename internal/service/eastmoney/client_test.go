package eastmoney

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"FundFlow/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `{"rc":0,"data":{"code":"600519","market":1,"name":"贵州茅台","klines":[
"2024-03-01,100000000,-20000000,-30000000,40000000,60000000,5.5,-1.1,-1.6,2.2,3.3,1700.50,1.25,0.00,0.00",
"2024-03-04,-50000000,10000000,20000000,-10000000,-40000000,-2.5,0.5,1.0,-0.5,-2.0,1690.00,-0.62,0.00,0.00",
"2024-03-05,-,1,2,3,4,5,6,7,8,9,1700.00,0.59,0.00,0.00",
"bad-date,1,2,3,4,5,6,7,8,9,10,11,12,0,0",
"2024-03-06,1,2"
]}}`

func testClient(url string) *Client {
	return NewClient(Config{BaseURL: url, MaxRetries: 2, RetryDelay: time.Millisecond, ThrottleDelay: time.Millisecond}, nil, nil)
}

func TestFetchFundFlow(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fundFlowPath, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	stock := models.NewStockInfo("600519", models.MarketSH)
	table, err := testClient(srv.URL).FetchFundFlow(context.Background(), stock)
	require.NoError(t, err)

	assert.Equal(t, "1.600519", query["secid"])
	assert.Equal(t, "0", query["lmt"])
	assert.Equal(t, "101", query["klt"])

	assert.Equal(t, "贵州茅台", table.Name)
	assert.Equal(t, models.UnitYuan, table.Unit)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, "2024-03-05", table.Rows[0].DateKey())
	assert.Equal(t, "2024-03-01", table.Rows[2].DateKey())

	first := table.Rows[2]
	assert.Equal(t, 1e8, first.NetAmount[models.ClassMain].Float64)
	assert.Equal(t, -2e7, first.NetAmount[models.ClassSmall].Float64)
	assert.Equal(t, -3e7, first.NetAmount[models.ClassMedium].Float64)
	assert.Equal(t, 4e7, first.NetAmount[models.ClassLarge].Float64)
	assert.Equal(t, 6e7, first.NetAmount[models.ClassSuperLarge].Float64)
	assert.Equal(t, 3.3, first.NetRatio[models.ClassSuperLarge].Float64)
	assert.Equal(t, 1700.50, first.ClosePrice.Float64)
	assert.Equal(t, 1.25, first.ChangePct.Float64)

	assert.False(t, table.Rows[0].NetAmount[models.ClassMain].Valid)
}

func TestFetchFundFlowNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rc":0,"data":null}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchFundFlow(context.Background(), models.NewStockInfo("000001", models.MarketSZ))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestFetchFundFlowRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	table, err := testClient(srv.URL).FetchFundFlow(context.Background(), models.NewStockInfo("600519", models.MarketSH))
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchFundFlowNoRetryOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchFundFlow(context.Background(), models.NewStockInfo("600519", models.MarketSH))
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestParseFundFlowInvalidJSON(t *testing.T) {
	_, err := ParseFundFlow([]byte("not json"), models.NewStockInfo("600519", models.MarketSH))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
}
