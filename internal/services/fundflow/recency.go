package fundflow

import "FundFlow/internal/domain/models"

// SelectRecent keeps the n most recent rows, newest first. Short tables are
// returned whole and n <= 0 yields no rows.
func SelectRecent(t models.FundFlowTable, n int) models.FundFlowTable {
	out := t.Clone()
	out.SortDescending()
	if n < 0 {
		n = 0
	}
	if len(out.Rows) > n {
		out.Rows = out.Rows[:n:n]
	}
	return out
}
