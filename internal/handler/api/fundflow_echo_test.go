package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FundFlow/internal/domain/models"
	"FundFlow/internal/domain/service"
	"FundFlow/internal/service/llm"
	"FundFlow/internal/service/ratelimit"
	"FundFlow/internal/services/fundflow"
	"FundFlow/internal/usecase"
	xhttp "FundFlow/pkg/http"

	"github.com/gorilla/websocket"
	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	rows int
	err  error
}

func (s *stubSource) FetchFundFlow(_ context.Context, stock models.StockInfo) (models.FundFlowTable, error) {
	if s.err != nil {
		return models.FundFlowTable{}, s.err
	}
	t := models.FundFlowTable{
		Code: stock.Code, Market: stock.Market, Name: "测试股份", Unit: models.UnitYuan,
		Columns: models.FullColumnSet(),
	}
	day0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := s.rows - 1; i >= 0; i-- {
		r := models.FundFlowRow{Date: day0.AddDate(0, 0, i), ClosePrice: null.FloatFrom(10), ChangePct: null.FloatFrom(0.5)}
		for _, c := range models.FlowClasses {
			r.NetAmount[c] = null.FloatFrom(1e8)
			r.NetRatio[c] = null.FloatFrom(1)
		}
		t.Rows = append(t.Rows, r)
	}
	return t, nil
}

type stubAnalyst struct{ fragments []string }

func (a *stubAnalyst) Stream(ctx context.Context, _ service.Prompt) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)
		for _, f := range a.fragments {
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errs
}
func (a *stubAnalyst) Ping(context.Context) error { return nil }
func (a *stubAnalyst) Provider() string           { return "stub" }
func (a *stubAnalyst) Model() string              { return "stub-1" }

func newTestServer(t *testing.T, src *stubSource, analyst service.Analyst, rl *ratelimit.Limiter) *httptest.Server {
	t.Helper()
	return newServerWithQueue(t, src, analyst, rl, nil)
}

func newServerWithQueue(t *testing.T, src *stubSource, analyst service.Analyst, rl *ratelimit.Limiter, q usecase.Enqueuer) *httptest.Server {
	t.Helper()
	proc, err := fundflow.NewProcessor(fundflow.DefaultConfig(), nil)
	require.NoError(t, err)
	archiver, err := usecase.NewSnapshotArchiver(nil, nil, nil, usecase.ArchiveNone)
	require.NoError(t, err)

	deps := usecase.FundFlowDeps{
		Source:    src,
		Processor: proc,
		Archiver:  archiver,
		LLMConfig: llm.Config{Provider: llm.ProviderOpenAI, Model: "gpt-3.5-turbo"},
	}
	if analyst != nil {
		deps.Analyst = analyst
		deps.LLMConfig.APIKey = "k"
	}
	uc := usecase.NewFundFlowUseCase(deps)
	var refresh *usecase.RefreshScheduler
	if q != nil {
		refresh = usecase.NewRefreshScheduler(q, uc, nil)
	}
	h := NewFundFlowEchoHandler(nil, uc, rl, refresh, HealthInfo{Title: "t", Cache: "none", Archive: "none", Refresh: refresh != nil})
	srv := xhttp.NewServer(h, nil, xhttp.WithMetrics("", 0), xhttp.WithCompression(true, AnalysisPrefix))
	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestFundFlowRoute(t *testing.T) {
	ts := newTestServer(t, &stubSource{rows: 40}, nil, nil)

	var body struct {
		Status int `json:"status"`
		Data   struct {
			Stock    models.StockInfo `json:"stock"`
			Days     int              `json:"days"`
			Rows     []map[string]any `json:"rows"`
			Columns  []string         `json:"columns"`
			Markdown string           `json:"markdown"`
		} `json:"data"`
	}
	status := getJSON(t, ts.URL+"/api/fundflow?code=600519&days=20", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "600519.SH", body.Data.Stock.FullCode)
	assert.Equal(t, 20, body.Data.Days)
	assert.Len(t, body.Data.Rows, 20)
	assert.Equal(t, "date", body.Data.Columns[0])
	assert.Equal(t, 1.0, body.Data.Rows[0]["main_net_amount"])
	assert.Contains(t, body.Data.Markdown, "日期")
}

func TestFundFlowRouteErrors(t *testing.T) {
	src := &stubSource{rows: 0}
	ts := newTestServer(t, src, nil, nil)

	var body xhttp.APIResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/fundflow?code=600519", &body))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/fundflow?code=600519&days=5", &body))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/fundflow?code=abc", &body))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/fundflow", &body))

	src.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, getJSON(t, ts.URL+"/api/fundflow?code=600519", &body))
}

func TestMarkdownRoute(t *testing.T) {
	ts := newTestServer(t, &stubSource{rows: 12}, nil, nil)
	resp, err := http.Get(ts.URL + "/api/fundflow/markdown?code=000001&days=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	sc := bufio.NewScanner(resp.Body)
	lines := 0
	for sc.Scan() {
		lines++
	}
	assert.Equal(t, 12, lines)
}

func TestStockAndStatusRoutes(t *testing.T) {
	ts := newTestServer(t, &stubSource{rows: 1}, nil, nil)

	var stock struct {
		Data models.StockInfo `json:"data"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/stocks/sz1", &stock))
	assert.Equal(t, "000001", stock.Data.Code)
	assert.Equal(t, models.MarketSZ, stock.Data.Market)

	var st struct {
		Data models.LLMStatus `json:"data"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/llm/status?ping=true", &st))
	assert.False(t, st.Data.Configured)
	assert.Equal(t, []string{"OPENAI_API_KEY"}, st.Data.Missing)

	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/api/history?code=600519", nil))
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/health", nil))
}

func TestAnalysisNotConfigured(t *testing.T) {
	ts := newTestServer(t, &stubSource{rows: 30}, nil, nil)
	var body struct {
		Data []xhttp.AppError `json:"data"`
	}
	require.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/api/analysis/stream?code=600519", &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_UNAVAILABLE", body.Data[0].Code)
	assert.Equal(t, []any{"OPENAI_API_KEY"}, body.Data[0].Params["missing"])
}

func TestAnalysisStream(t *testing.T) {
	ts := newTestServer(t, &stubSource{rows: 30}, &stubAnalyst{fragments: []string{"主力", "流入\n加速"}}, nil)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/analysis/stream?code=600519&days=10", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "zstd")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("Content-Encoding"))

	var events []models.StreamEvent
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var ev models.StreamEvent
			require.NoError(t, json.Unmarshal([]byte(data), &ev))
			events = append(events, ev)
		}
	}
	require.Len(t, events, 4)
	assert.Equal(t, "table", events[0].Type)
	assert.Contains(t, events[0].Data, "日期")
	assert.Equal(t, models.StreamEvent{Type: "delta", Data: "主力"}, events[1])
	assert.Equal(t, models.StreamEvent{Type: "delta", Data: "流入\n加速"}, events[2])
	assert.Equal(t, "done", events[3].Type)
}

func TestAnalysisWebSocket(t *testing.T) {
	ts := newTestServer(t, &stubSource{rows: 30}, &stubAnalyst{fragments: []string{"a", "b"}}, nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/analysis/ws?code=600519"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var types []string
	for {
		var ev models.StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"table", "delta", "delta", "done"}, types)
}

func TestAnalysisRateLimited(t *testing.T) {
	rl := ratelimit.New(0.001, 1, time.Minute)
	ts := newTestServer(t, &stubSource{rows: 30}, nil, rl)

	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/api/analysis/stream?code=600519", nil))
	assert.Equal(t, http.StatusTooManyRequests, getJSON(t, ts.URL+"/api/analysis/stream?code=600519", nil))
}

func TestCompressedResponse(t *testing.T) {
	ts := newTestServer(t, &stubSource{rows: 1}, nil, nil)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/stocks/600519", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "zstd")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "zstd", resp.Header.Get("Content-Encoding"))
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, &stubSource{rows: 1}, nil, nil)
	var body xhttp.APIResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/nope", &body))
	assert.Equal(t, http.StatusNotFound, body.Status)
}

type recordingQueue struct {
	payloads []any
}

func (q *recordingQueue) Enqueue(_ context.Context, _ string, payload any) error {
	q.payloads = append(q.payloads, payload)
	return nil
}

func post(t *testing.T, url, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestRefreshRoute(t *testing.T) {
	q := &recordingQueue{}
	ts := newServerWithQueue(t, &stubSource{rows: 30}, nil, nil, q)

	assert.Equal(t, http.StatusAccepted, post(t, ts.URL+"/api/refresh/600519", `{"days":20}`))
	assert.Equal(t, http.StatusAccepted, post(t, ts.URL+"/api/refresh/1", ""))
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/refresh/600519", `{"days":5}`))
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/refresh/abc", ""))

	require.Len(t, q.payloads, 2)
	assert.Equal(t, usecase.RefreshRequest{Code: "600519", Days: 20}, q.payloads[0])
	assert.Equal(t, usecase.RefreshRequest{Code: "000001", Days: 30}, q.payloads[1])
}

func TestRefreshRouteDisabled(t *testing.T) {
	ts := newTestServer(t, &stubSource{rows: 30}, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, post(t, ts.URL+"/api/refresh/600519", ""))
}
