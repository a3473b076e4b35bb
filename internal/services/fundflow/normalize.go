package fundflow

import (
	"FundFlow/internal/domain/models"
)

// NormalizeAmounts divides every present amount column and its moving
// averages by divisor and rounds. Nulls stay null; ratios, prices and changes
// are not touched. A table already in yi is rejected so amounts are never
// divided twice.
func NormalizeAmounts(t models.FundFlowTable, divisor float64, places int32) (models.FundFlowTable, error) {
	if t.Unit == models.UnitYi {
		return models.FundFlowTable{}, ErrAlreadyNormalized
	}
	out := t.Clone()

	cols := amountColumns(out.Columns)
	for i := range out.Rows {
		row := &out.Rows[i]
		for _, col := range cols {
			f := row.Field(col)
			if f == nil || !f.Valid {
				continue
			}
			f.Float64 = scale(f.Float64, divisor, places)
		}
	}
	out.Unit = models.UnitYi
	return out, nil
}

// amountColumns are the present columns holding money.
func amountColumns(set models.ColumnSet) []models.Column {
	var cols []models.Column
	for _, cls := range models.FlowClasses {
		if set.Has(models.AmountColumn(cls)) {
			cols = append(cols, models.AmountColumn(cls))
		}
		for _, w := range models.MAWindows {
			if set.Has(models.MAColumn(cls, w)) {
				cols = append(cols, models.MAColumn(cls, w))
			}
		}
	}
	return cols
}
