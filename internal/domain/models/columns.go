package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Column is the canonical key of a table column.
type Column string

const (
	ColDate       Column = "date"
	ColClosePrice Column = "close_price"
	ColChangePct  Column = "change_pct"
)

// AmountColumn is the net amount column of class c.
func AmountColumn(c FlowClass) Column {
	return Column(c.String() + "_net_amount")
}

// RatioColumn is the net ratio column of class c.
func RatioColumn(c FlowClass) Column {
	return Column(c.String() + "_net_ratio")
}

// MAColumn is the moving average of the net amount of class c over window w.
func MAColumn(c FlowClass, w int) Column {
	return Column(fmt.Sprintf("%s_net_amount_ma%d", c.String(), w))
}

// ColumnSet records which columns a table carries. A column missing from the
// set is absent, which differs from a present column holding null values.
type ColumnSet map[Column]struct{}

// NewColumnSet builds a set from cols.
func NewColumnSet(cols ...Column) ColumnSet {
	s := make(ColumnSet, len(cols))
	for _, c := range cols {
		s[c] = struct{}{}
	}
	return s
}

// FullColumnSet is every raw column the upstream source can provide.
func FullColumnSet() ColumnSet {
	s := NewColumnSet(ColDate, ColClosePrice, ColChangePct)
	for _, c := range FlowClasses {
		s.Add(AmountColumn(c))
		s.Add(RatioColumn(c))
	}
	return s
}

func (s ColumnSet) Has(c Column) bool {
	_, ok := s[c]
	return ok
}

func (s ColumnSet) Add(c Column) {
	s[c] = struct{}{}
}

func (s ColumnSet) Remove(c Column) {
	delete(s, c)
}

func (s ColumnSet) Clone() ColumnSet {
	if s == nil {
		return nil
	}
	out := make(ColumnSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s ColumnSet) Sorted() []Column {
	out := make([]Column, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s ColumnSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *ColumnSet) UnmarshalJSON(b []byte) error {
	var cols []Column
	if err := json.Unmarshal(b, &cols); err != nil {
		return err
	}
	*s = NewColumnSet(cols...)
	return nil
}
