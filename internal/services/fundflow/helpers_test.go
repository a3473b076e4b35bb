package fundflow

import (
	"time"

	"FundFlow/internal/domain/models"

	"github.com/guregu/null/v6"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func dayN(n int) time.Time { return day0.AddDate(0, 0, n) }

// ascendingTable builds rows dated day 1..n with main net amount i*1e8 and a
// fixed ratio, close price and change.
func ascendingTable(n int) models.FundFlowTable {
	t := models.FundFlowTable{
		Code:    "600519",
		Market:  models.MarketSH,
		Unit:    models.UnitYuan,
		Columns: models.FullColumnSet(),
	}
	for i := 1; i <= n; i++ {
		var r models.FundFlowRow
		r.Date = dayN(i)
		r.ClosePrice = null.FloatFrom(100 + float64(i))
		r.ChangePct = null.FloatFrom(0.5)
		for _, cls := range models.FlowClasses {
			r.NetAmount[cls] = null.FloatFrom(float64(i) * 1e8)
			r.NetRatio[cls] = null.FloatFrom(1.25)
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

func rowByDate(t models.FundFlowTable, d time.Time) (models.FundFlowRow, bool) {
	for _, r := range t.Rows {
		if r.Date.Equal(d) {
			return r, true
		}
	}
	return models.FundFlowRow{}, false
}
