package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// Summary holds the headline metrics of a processed table.
type Summary struct {
	Days          int                   `json:"days"`
	From          time.Time             `json:"from"`
	To            time.Time             `json:"to"`
	MainNetTotal  null.Float            `json:"main_net_total"`
	LatestClose   null.Float            `json:"latest_close"`
	LatestChange  null.Float            `json:"latest_change_pct"`
	AverageRatios map[string]null.Float `json:"average_ratios"`
}

// ChartPoint is one dated value of a chart series.
type ChartPoint struct {
	Date  string     `json:"date"`
	Value null.Float `json:"value"`
}

// Charts are ascending series for the display layer.
type Charts struct {
	ClosePrice []ChartPoint `json:"close_price"`
	MainNet    []ChartPoint `json:"main_net"`
	MainMA3    []ChartPoint `json:"main_ma3"`
	MainMA5    []ChartPoint `json:"main_ma5"`
}

// FundFlowResult is a processed table together with its derived views.
type FundFlowResult struct {
	Stock    StockInfo        `json:"stock"`
	Name     string           `json:"name,omitempty"`
	Days     int              `json:"days"`
	Table    FundFlowTable    `json:"-"`
	Records  []map[Column]any `json:"rows"`
	Columns  []Column         `json:"columns"`
	Summary  Summary          `json:"summary"`
	Charts   Charts           `json:"charts"`
	Markdown string           `json:"markdown"`
}

// LLMStatus reports analyst configuration.
type LLMStatus struct {
	Provider   string   `json:"provider"`
	Model      string   `json:"model"`
	Configured bool     `json:"configured"`
	Missing    []string `json:"missing,omitempty"`
	Reachable  *bool    `json:"reachable,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// StreamEvent is a message pushed to streaming clients.
type StreamEvent struct {
	Type string `json:"type"` // table, delta, done, error
	Data string `json:"data,omitempty"`
}
