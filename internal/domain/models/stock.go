package models

import "strings"

// Market is an exchange identifier.
type Market string

const (
	MarketSH Market = "sh"
	MarketSZ Market = "sz"
	MarketBJ Market = "bj"
)

// StockInfo is a normalized ticker.
type StockInfo struct {
	Code     string `json:"code"`
	Market   Market `json:"market"`
	FullCode string `json:"full_code"`
}

// NewStockInfo builds the info with its exchange-qualified code, e.g. 600519.SH.
func NewStockInfo(code string, market Market) StockInfo {
	return StockInfo{
		Code:     code,
		Market:   market,
		FullCode: code + "." + strings.ToUpper(string(market)),
	}
}
