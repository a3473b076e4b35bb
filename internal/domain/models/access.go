package models

import "github.com/guregu/null/v6"

var fieldAccessors = map[Column]func(*FundFlowRow) *null.Float{
	ColClosePrice: func(r *FundFlowRow) *null.Float { return &r.ClosePrice },
	ColChangePct:  func(r *FundFlowRow) *null.Float { return &r.ChangePct },
}

func init() {
	for _, c := range FlowClasses {
		c := c
		fieldAccessors[AmountColumn(c)] = func(r *FundFlowRow) *null.Float { return &r.NetAmount[c] }
		fieldAccessors[RatioColumn(c)] = func(r *FundFlowRow) *null.Float { return &r.NetRatio[c] }
		for wi, w := range MAWindows {
			wi := wi
			fieldAccessors[MAColumn(c, w)] = func(r *FundFlowRow) *null.Float { return &r.NetAmountMA[c][wi] }
		}
	}
}

// Field returns a pointer to the numeric cell of col, or nil for the date
// column and unknown keys.
func (r *FundFlowRow) Field(col Column) *null.Float {
	if f, ok := fieldAccessors[col]; ok {
		return f(r)
	}
	return nil
}

// DisplayColumns lists the present columns in display order: date, price and
// change, then each class amount with its moving averages, then each ratio.
func DisplayColumns(set ColumnSet) []Column {
	order := make([]Column, 0, len(set))
	for _, c := range []Column{ColDate, ColClosePrice, ColChangePct} {
		if set.Has(c) {
			order = append(order, c)
		}
	}
	for _, cls := range FlowClasses {
		if !set.Has(AmountColumn(cls)) {
			continue
		}
		order = append(order, AmountColumn(cls))
		for _, w := range MAWindows {
			if set.Has(MAColumn(cls, w)) {
				order = append(order, MAColumn(cls, w))
			}
		}
	}
	for _, cls := range FlowClasses {
		if set.Has(RatioColumn(cls)) {
			order = append(order, RatioColumn(cls))
		}
	}
	return order
}

// Records flattens the table into one map per row holding only present columns.
func (t FundFlowTable) Records() []map[Column]any {
	cols := DisplayColumns(t.Columns)
	out := make([]map[Column]any, 0, len(t.Rows))
	for i := range t.Rows {
		row := &t.Rows[i]
		rec := make(map[Column]any, len(cols))
		for _, col := range cols {
			if col == ColDate {
				rec[col] = row.DateKey()
				continue
			}
			if f := row.Field(col); f != nil {
				rec[col] = *f
			}
		}
		out = append(out, rec)
	}
	return out
}
