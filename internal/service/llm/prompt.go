package llm

import (
	"fmt"
	"strings"

	"FundFlow/internal/domain/models"
	"FundFlow/internal/domain/service"
)

const systemPrompt = `专业股票资金流分析师。分析要求：
1. **趋势**: 资金流向和MA均线方向
2. **结构**: 机构vs散户，协同vs背离
3. **信号**: 买卖信号和风险点
4. **建议**: 具体操作和观察重点

输出要求：结论先行，数据支撑，简明扼要。`

const userTemplate = `## 分析数据
以下是该股票%s(%s)最近%d个交易日的资金流数据，包含净额（亿元）和净占比（%%）：

%s

## 分析要求
基于%d日资金流数据，简要回答：

**趋势**: 主力资金流向？MA均线方向？
**结构**: 机构vs散户主导？资金协同性？
**信号**: 买入/卖出信号？关键风险点？
**建议**: 操作方向？重点观察指标？

要求：数据支撑，结论简明，突出重点。`

// BuildAnalysisPrompt asks for a trend analysis of the markdown table of the
// last days trading days of stock.
func BuildAnalysisPrompt(stock models.StockInfo, days int, markdown string) service.Prompt {
	return service.Prompt{
		System: systemPrompt,
		User: fmt.Sprintf(userTemplate,
			stock.Code, strings.ToUpper(string(stock.Market)), days, strings.TrimRight(markdown, "\n"), days),
	}
}
