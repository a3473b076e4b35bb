package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FundFlow/internal/domain/models"

	"github.com/guregu/null/v6"
)

// flowColumns is the persisted layout of one raw daily row after its key
// columns (code, market, date).
var flowColumns = func() []string {
	cols := []string{"name", string(models.ColClosePrice), string(models.ColChangePct)}
	for _, c := range models.FlowClasses {
		cols = append(cols, string(models.AmountColumn(c)))
	}
	for _, c := range models.FlowClasses {
		cols = append(cols, string(models.RatioColumn(c)))
	}
	return cols
}()

func insertColumns() []string {
	return append([]string{"code", "market", "date"}, flowColumns...)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullable(f null.Float) any {
	if !f.Valid {
		return nil
	}
	return f.Float64
}

// rowArgs returns the insert arguments of row in insertColumns order.
func rowArgs(t models.FundFlowTable, row models.FundFlowRow, date any) []any {
	args := []any{t.Code, string(t.Market), date, t.Name, nullable(row.ClosePrice), nullable(row.ChangePct)}
	for _, c := range models.FlowClasses {
		args = append(args, nullable(row.NetAmount[c]))
	}
	for _, c := range models.FlowClasses {
		args = append(args, nullable(row.NetRatio[c]))
	}
	return args
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanFlowRow reads a row selected as (date, flowColumns...). parseDate
// converts the driver's date value.
func scanFlowRow(rs rowScanner, parseDate func(any) (time.Time, error)) (models.FundFlowRow, error) {
	var (
		rawDate any
		name    string
		nums    [2 + 2*models.NumClasses]sql.NullFloat64
	)
	dest := []any{&rawDate, &name}
	for i := range nums {
		dest = append(dest, &nums[i])
	}
	if err := rs.Scan(dest...); err != nil {
		return models.FundFlowRow{}, err
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return models.FundFlowRow{}, err
	}

	row := models.FundFlowRow{
		Date:       date,
		ClosePrice: null.Float{NullFloat64: nums[0]},
		ChangePct:  null.Float{NullFloat64: nums[1]},
	}
	for i, c := range models.FlowClasses {
		row.NetAmount[c] = null.Float{NullFloat64: nums[2+i]}
		row.NetRatio[c] = null.Float{NullFloat64: nums[2+models.NumClasses+i]}
	}
	return row, nil
}

func timeDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		return time.Parse(models.DateLayout, d)
	case []byte:
		return time.Parse(models.DateLayout, string(d))
	default:
		return time.Time{}, fmt.Errorf("unexpected date value %T", v)
	}
}

// rawOnly rejects tables already converted to yi; the archive keeps yuan.
func rawOnly(t models.FundFlowTable) error {
	if t.Unit == models.UnitYi {
		return fmt.Errorf("archive %s: table already normalized", t.Code)
	}
	if t.Code == "" {
		return fmt.Errorf("archive: table has no code")
	}
	return nil
}
