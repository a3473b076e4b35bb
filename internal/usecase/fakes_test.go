package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"FundFlow/internal/domain/models"
	"FundFlow/internal/domain/service"

	"github.com/guregu/null/v6"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// rawTable has n rows, most recent first, with main net amount i*1e8 yuan on day i.
func rawTable(code string, market models.Market, n int) models.FundFlowTable {
	t := models.FundFlowTable{
		Code: code, Market: market, Name: "测试股份", Unit: models.UnitYuan,
		Columns: models.FullColumnSet(),
	}
	for i := n - 1; i >= 0; i-- {
		r := models.FundFlowRow{
			Date:       day0.AddDate(0, 0, i),
			ClosePrice: null.FloatFrom(10 + float64(i)),
			ChangePct:  null.FloatFrom(1.5),
		}
		for _, c := range models.FlowClasses {
			r.NetAmount[c] = null.FloatFrom(float64(i) * 1e8)
			r.NetRatio[c] = null.FloatFrom(2.5)
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

type fakeSource struct {
	table models.FundFlowTable
	err   error
	calls int
}

func (s *fakeSource) FetchFundFlow(_ context.Context, stock models.StockInfo) (models.FundFlowTable, error) {
	s.calls++
	if s.err != nil {
		return models.FundFlowTable{}, s.err
	}
	t := s.table.Clone()
	t.Code, t.Market = stock.Code, stock.Market
	return t, nil
}

type fakeStorage struct {
	mu     sync.Mutex
	stored []models.FundFlowTable
	rows   []models.FundFlowRow
	err    error
}

func (s *fakeStorage) Init(context.Context) error { return nil }
func (s *fakeStorage) StoreSnapshot(_ context.Context, t models.FundFlowTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, t)
	return nil
}
func (s *fakeStorage) Query(_ context.Context, _ string, _, _ time.Time, limit int) ([]models.FundFlowRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit > 0 && limit < len(s.rows) {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}
func (s *fakeStorage) Health(context.Context) error { return nil }
func (s *fakeStorage) Close() error                 { return nil }

type fakePublisher struct {
	published []models.FundFlowTable
	err       error
}

func (p *fakePublisher) PublishSnapshot(_ context.Context, t models.FundFlowTable) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, t)
	return nil
}
func (p *fakePublisher) Close() error { return nil }

type fakeAnalyst struct {
	fragments []string
	err       error
	pingErr   error
	prompt    service.Prompt
}

func (a *fakeAnalyst) Stream(ctx context.Context, p service.Prompt) (<-chan string, <-chan error) {
	a.prompt = p
	out := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		for _, f := range a.fragments {
			select {
			case out <- f:
			case <-ctx.Done():
				close(out)
				errs <- ctx.Err()
				return
			}
		}
		close(out)
		if a.err != nil {
			errs <- a.err
		}
	}()
	return out, errs
}
func (a *fakeAnalyst) Ping(context.Context) error { return a.pingErr }
func (a *fakeAnalyst) Provider() string           { return "fake" }
func (a *fakeAnalyst) Model() string              { return "fake-1" }

type recorder struct {
	mu        sync.Mutex
	errors    []string
	archived  map[string]int
	fragments int
}

func newRecorder() *recorder { return &recorder{archived: map[string]int{}} }

func (r *recorder) RecordFetch(string, string) {}
func (r *recorder) RecordCache(string)         {}
func (r *recorder) RecordArchived(backend string, rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archived[backend] += rows
}
func (r *recorder) RecordError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, kind)
}
func (r *recorder) RecordLatency(string, float64) {}
func (r *recorder) RecordFragments(_ string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fragments += n
}

type fakeInvalidator struct{ dropped []models.StockInfo }

func (f *fakeInvalidator) Invalidate(_ context.Context, s models.StockInfo) error {
	f.dropped = append(f.dropped, s)
	return nil
}

var errUpstream = errors.New("upstream down")
