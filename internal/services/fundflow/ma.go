package fundflow

import (
	"fmt"

	"FundFlow/internal/domain/models"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// AddMovingAverages appends trailing means of every present amount column for
// each window. A row averages itself and up to w-1 earlier rows; nulls are
// skipped and a window with no values stays null. The result is ordered most
// recent first and t is left untouched.
func AddMovingAverages(t models.FundFlowTable, windows []int, places int32) (models.FundFlowTable, error) {
	out := t.Clone()
	if out.Columns == nil {
		out.Columns = models.NewColumnSet()
	}
	out.SortAscending()
	for i := 1; i < len(out.Rows); i++ {
		if out.Rows[i].Date.Equal(out.Rows[i-1].Date) {
			return models.FundFlowTable{}, fmt.Errorf("%w: %s", ErrDuplicateDate, out.Rows[i].DateKey())
		}
	}

	for _, cls := range models.FlowClasses {
		if !t.Columns.Has(models.AmountColumn(cls)) {
			continue
		}
		for _, w := range windows {
			wi, ok := models.WindowIndex(w)
			if !ok {
				return models.FundFlowTable{}, fmt.Errorf("%w: %d", ErrUnknownWindow, w)
			}
			for i := range out.Rows {
				out.Rows[i].NetAmountMA[cls][wi] = trailingMean(out.Rows, cls, i, w, places)
			}
			out.Columns.Add(models.MAColumn(cls, w))
		}
	}

	out.SortDescending()
	return out, nil
}

func trailingMean(rows []models.FundFlowRow, cls models.FlowClass, end, window int, places int32) null.Float {
	start := end - window + 1
	if start < 0 {
		start = 0
	}
	sum := decimal.Zero
	n := 0
	for i := start; i <= end; i++ {
		v := rows[i].NetAmount[cls]
		if !v.Valid {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(v.Float64))
		n++
	}
	if n == 0 {
		return null.Float{}
	}
	mean := sum.Div(decimal.NewFromInt(int64(n))).RoundBank(places)
	return null.FloatFrom(mean.InexactFloat64())
}
