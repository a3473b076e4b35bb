package fundflow

import (
	"FundFlow/internal/domain/models"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// Summarize computes the headline metrics of a processed table.
func Summarize(t models.FundFlowTable) models.Summary {
	s := models.Summary{
		Days:          t.Len(),
		AverageRatios: make(map[string]null.Float),
	}
	if t.Len() == 0 {
		return s
	}

	asc := t.Clone()
	asc.SortAscending()
	s.From = asc.Rows[0].Date
	s.To = asc.Rows[len(asc.Rows)-1].Date

	latest := asc.Rows[len(asc.Rows)-1]
	s.LatestClose = latest.ClosePrice
	s.LatestChange = latest.ChangePct

	if t.Columns.Has(models.AmountColumn(models.ClassMain)) {
		s.MainNetTotal = sumOf(asc.Rows, func(r models.FundFlowRow) null.Float { return r.NetAmount[models.ClassMain] })
	}
	for _, cls := range models.FlowClasses {
		if !t.Columns.Has(models.RatioColumn(cls)) {
			continue
		}
		cls := cls
		s.AverageRatios[cls.String()] = meanOf(asc.Rows, func(r models.FundFlowRow) null.Float { return r.NetRatio[cls] })
	}
	return s
}

// ChartSeries projects the processed table into ascending chart series.
func ChartSeries(t models.FundFlowTable) models.Charts {
	asc := t.Clone()
	asc.SortAscending()

	var c models.Charts
	main := models.ClassMain
	for _, r := range asc.Rows {
		d := r.DateKey()
		if t.Columns.Has(models.ColClosePrice) {
			c.ClosePrice = append(c.ClosePrice, models.ChartPoint{Date: d, Value: r.ClosePrice})
		}
		if t.Columns.Has(models.AmountColumn(main)) {
			c.MainNet = append(c.MainNet, models.ChartPoint{Date: d, Value: r.NetAmount[main]})
		}
		if t.Columns.Has(models.MAColumn(main, 3)) {
			c.MainMA3 = append(c.MainMA3, models.ChartPoint{Date: d, Value: r.NetAmountMA[main][0]})
		}
		if t.Columns.Has(models.MAColumn(main, 5)) {
			c.MainMA5 = append(c.MainMA5, models.ChartPoint{Date: d, Value: r.NetAmountMA[main][1]})
		}
	}
	return c
}

func sumOf(rows []models.FundFlowRow, get func(models.FundFlowRow) null.Float) null.Float {
	total := decimal.Zero
	seen := false
	for _, r := range rows {
		if v := get(r); v.Valid {
			total = total.Add(decimal.NewFromFloat(v.Float64))
			seen = true
		}
	}
	if !seen {
		return null.Float{}
	}
	return null.FloatFrom(round(total.InexactFloat64(), 2))
}

func meanOf(rows []models.FundFlowRow, get func(models.FundFlowRow) null.Float) null.Float {
	total := decimal.Zero
	n := 0
	for _, r := range rows {
		if v := get(r); v.Valid {
			total = total.Add(decimal.NewFromFloat(v.Float64))
			n++
		}
	}
	if n == 0 {
		return null.Float{}
	}
	return null.FloatFrom(round(total.Div(decimal.NewFromInt(int64(n))).InexactFloat64(), 2))
}
