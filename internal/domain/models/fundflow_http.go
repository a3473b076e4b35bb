package models

// Requests for fund-flow HTTP endpoints. Days of zero falls back to the configured default.

type StockRequest struct {
	Code string `param:"code" json:"code" validate:"required,max=16"`
}

type FundFlowRequest struct {
	Code string `query:"code" json:"code" validate:"required,max=16"`
	Days int    `query:"days" json:"days" validate:"omitempty,gte=10,lte=50"`
}

type AnalysisRequest struct {
	Code string `query:"code" json:"code" validate:"required,max=16"`
	Days int    `query:"days" json:"days" validate:"omitempty,gte=10,lte=50"`
}

type HistoryRequest struct {
	Code  string `query:"code" json:"code" validate:"required,max=16"`
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"250" validate:"gte=1,lte=5000"`
}

type LLMStatusRequest struct {
	Ping bool `query:"ping" json:"ping" default:"false"`
}

// RefreshRequest reads days from an optional JSON body.
type RefreshRequest struct {
	Code string `param:"code" json:"-" validate:"required,max=16"`
	Days int    `json:"days" validate:"omitempty,gte=10,lte=50"`
}
