package eastmoney

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"FundFlow/internal/domain/models"
	drepo "FundFlow/internal/domain/repository"
	xhttp "FundFlow/pkg/http"
	"FundFlow/pkg/logger"

	"github.com/guregu/null/v6"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	fundFlowPath = "/api/qt/stock/fflow/daykline/get"
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	sourceName   = "eastmoney"
)

// ErrNoData is returned when the upstream has no rows for a stock.
var ErrNoData = errors.New("no fund flow data")

// Field order of a kline record: date, five net amounts (main, small,
// medium, large, super large), the five matching ratios, close, change.
const klineFields = 15

var klineClassOrder = [models.NumClasses]models.FlowClass{
	models.ClassMain, models.ClassSmall, models.ClassMedium, models.ClassLarge, models.ClassSuperLarge,
}

type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	ThrottleDelay time.Duration // wait after HTTP 429
	RateLimit     float64       // requests per second, <= 0 disables
	Burst         int
}

// Client fetches daily fund flow from the Eastmoney push2his API.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	limiter *rate.Limiter
	logger  *logger.Logger
	metrics drepo.Metrics
}

var _ drepo.FundFlowSource = (*Client)(nil)

func NewClient(cfg Config, log *logger.Logger, metrics drepo.Metrics) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.ThrottleDelay <= 0 {
		cfg.ThrottleDelay = 5 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Client{
		cfg:     cfg,
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithUserAgent(userAgent)),
		limiter: limiter,
		logger:  log.With(logger.String("source", sourceName)),
		metrics: metrics,
	}
}

// FetchFundFlow returns every available trading day for stock, amounts in yuan.
func (c *Client) FetchFundFlow(ctx context.Context, stock models.StockInfo) (models.FundFlowTable, error) {
	start := time.Now()
	body, err := c.fetchWithRetry(ctx, stock)
	if err != nil {
		c.record("error")
		return models.FundFlowTable{}, err
	}

	table, err := ParseFundFlow(body, stock)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			c.record("empty")
		} else {
			c.record("error")
		}
		return models.FundFlowTable{}, err
	}
	c.record("ok")
	if c.metrics != nil {
		c.metrics.RecordLatency("fetch", time.Since(start).Seconds())
	}
	c.logger.Info("fund flow fetched",
		logger.String("code", stock.Code),
		logger.Int("rows", table.Len()),
		logger.Duration("took", time.Since(start)))
	return table, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, stock models.StockInfo) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.RetryDelay
			var se *xhttp.StatusError
			if errors.As(lastErr, &se) && se.Status == http.StatusTooManyRequests {
				delay = c.cfg.ThrottleDelay
			}
			c.logger.Warn("retrying fund flow request",
				logger.String("code", stock.Code),
				logger.Int("attempt", attempt),
				logger.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		body, err := c.fetchOnce(ctx, stock)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			break
		}
	}
	return nil, fmt.Errorf("eastmoney fetch %s: %w", stock.Code, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, stock models.StockInfo) ([]byte, error) {
	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    strings.TrimRight(c.cfg.BaseURL, "/") + fundFlowPath,
		Headers: map[string]string{
			"Referer": "https://data.eastmoney.com/",
		},
		QueryParams: map[string][]string{
			"lmt":     {"0"},
			"klt":     {"101"},
			"secid":   {secID(stock)},
			"fields1": {"f1,f2,f3,f7"},
			"fields2": {"f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61,f62,f63,f64,f65"},
		},
	}, &body)
	return body, err
}

func (c *Client) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordFetch(sourceName, result)
	}
}

// ParseFundFlow decodes an API response body into a table sorted most recent
// first. Unparseable numbers become null; a malformed date drops the record.
func ParseFundFlow(body []byte, stock models.StockInfo) (models.FundFlowTable, error) {
	if !gjson.ValidBytes(body) {
		return models.FundFlowTable{}, fmt.Errorf("eastmoney: invalid json response")
	}
	res := gjson.ParseBytes(body)
	data := res.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		return models.FundFlowTable{}, fmt.Errorf("%w for %s", ErrNoData, stock.Code)
	}

	table := models.FundFlowTable{
		Code:    stock.Code,
		Market:  stock.Market,
		Name:    data.Get("name").String(),
		Unit:    models.UnitYuan,
		Columns: models.FullColumnSet(),
	}

	seen := make(map[string]struct{})
	for _, k := range data.Get("klines").Array() {
		row, ok := parseKline(k.String())
		if !ok {
			continue
		}
		key := row.DateKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		table.Rows = append(table.Rows, row)
	}
	if len(table.Rows) == 0 {
		return models.FundFlowTable{}, fmt.Errorf("%w for %s", ErrNoData, stock.Code)
	}
	table.SortDescending()
	return table, nil
}

func parseKline(line string) (models.FundFlowRow, bool) {
	parts := strings.Split(line, ",")
	if len(parts) < klineFields {
		return models.FundFlowRow{}, false
	}
	date, err := time.Parse(models.DateLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return models.FundFlowRow{}, false
	}
	row := models.FundFlowRow{Date: date}
	for i, cls := range klineClassOrder {
		row.NetAmount[cls] = parseNumber(parts[1+i])
		row.NetRatio[cls] = parseNumber(parts[6+i])
	}
	row.ClosePrice = parseNumber(parts[11])
	row.ChangePct = parseNumber(parts[12])
	return row, true
}

func parseNumber(s string) null.Float {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return null.Float{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(v)
}
