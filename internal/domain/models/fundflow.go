package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// FlowClass is an investor size class of a fund-flow series.
type FlowClass int

const (
	ClassMain FlowClass = iota
	ClassSuperLarge
	ClassLarge
	ClassMedium
	ClassSmall
)

// NumClasses is the number of flow classes.
const NumClasses = 5

// FlowClasses lists every class in canonical order.
var FlowClasses = [NumClasses]FlowClass{ClassMain, ClassSuperLarge, ClassLarge, ClassMedium, ClassSmall}

var classKeys = [NumClasses]string{"main", "super_large", "large", "medium", "small"}

var classLabels = [NumClasses]string{"主力", "超大单", "大单", "中单", "小单"}

func (c FlowClass) String() string {
	if c < 0 || int(c) >= NumClasses {
		return fmt.Sprintf("class(%d)", int(c))
	}
	return classKeys[c]
}

// Label is the display label used by the upstream data source.
func (c FlowClass) Label() string {
	if c < 0 || int(c) >= NumClasses {
		return c.String()
	}
	return classLabels[c]
}

// MAWindows are the supported moving-average window sizes, ascending.
var MAWindows = [3]int{3, 5, 10}

// NumWindows is the number of moving-average windows tracked per class.
const NumWindows = len(MAWindows)

// WindowIndex returns the slot of window w in MAWindows.
func WindowIndex(w int) (int, bool) {
	for i, v := range MAWindows {
		if v == w {
			return i, true
		}
	}
	return 0, false
}

// Unit is the monetary unit of the amount columns.
type Unit string

const (
	UnitYuan Unit = "yuan"
	// UnitYi is one hundred million yuan.
	UnitYi Unit = "yi"
)

// FundFlowRow is one trading day of fund flow for one stock.
type FundFlowRow struct {
	Date        time.Time                          `json:"date"`
	ClosePrice  null.Float                         `json:"close_price"`
	ChangePct   null.Float                         `json:"change_pct"`
	NetAmount   [NumClasses]null.Float             `json:"net_amount"`
	NetRatio    [NumClasses]null.Float             `json:"net_ratio"`
	NetAmountMA [NumClasses][NumWindows]null.Float `json:"net_amount_ma"`
}

// DateKey formats the row date as YYYY-MM-DD.
func (r FundFlowRow) DateKey() string {
	return r.Date.Format(DateLayout)
}

// DateLayout is the textual form of a trading date.
const DateLayout = "2006-01-02"

// FundFlowTable is an ordered set of rows keyed by date.
type FundFlowTable struct {
	Code    string        `json:"code"`
	Market  Market        `json:"market"`
	Name    string        `json:"name,omitempty"`
	Unit    Unit          `json:"unit"`
	Columns ColumnSet     `json:"columns"`
	Rows    []FundFlowRow `json:"rows"`
}

// Len returns the number of rows.
func (t FundFlowTable) Len() int { return len(t.Rows) }

// Clone returns a deep copy; rows are values so copying the slice is enough.
func (t FundFlowTable) Clone() FundFlowTable {
	out := t
	out.Columns = t.Columns.Clone()
	if t.Rows != nil {
		out.Rows = make([]FundFlowRow, len(t.Rows))
		copy(out.Rows, t.Rows)
	}
	return out
}

// SortAscending orders rows oldest first.
func (t *FundFlowTable) SortAscending() {
	sort.SliceStable(t.Rows, func(i, j int) bool { return t.Rows[i].Date.Before(t.Rows[j].Date) })
}

// SortDescending orders rows most recent first.
func (t *FundFlowTable) SortDescending() {
	sort.SliceStable(t.Rows, func(i, j int) bool { return t.Rows[i].Date.After(t.Rows[j].Date) })
}

// Latest returns the most recent row.
func (t FundFlowTable) Latest() (FundFlowRow, bool) {
	if len(t.Rows) == 0 {
		return FundFlowRow{}, false
	}
	latest := t.Rows[0]
	for _, r := range t.Rows[1:] {
		if r.Date.After(latest.Date) {
			latest = r
		}
	}
	return latest, true
}
