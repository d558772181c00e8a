// Package pricing 报价计算器。全部为纯函数，不依赖网络和存储。
package pricing

import "github.com/bitfantasy/nimo-crm/internal/crm/entity"

// Policy 报价边界系数，来自配置
type Policy struct {
	MinMarkup       float64 // 最低售价系数
	SuggestedMarkup float64 // 建议售价系数
}

// DefaultPolicy 默认报价系数
var DefaultPolicy = Policy{MinMarkup: 1.2, SuggestedMarkup: 1.4}

// ExpectedPriceResult 预期价格计算结果。Incomplete 表示存在无法从目录
// 解析的服务行，调用方应据此提示而不是把部分和当成完整价格。
type ExpectedPriceResult struct {
	Amount        float64 `json:"amount"`
	Incomplete    bool    `json:"incomplete"`
	ResolvedLines int     `json:"resolved_lines"`
	TotalLines    int     `json:"total_lines"`
}

// ExpectedPrice 预期价格 = Σ base_cost × quantity。
// 未解析的服务行计 0 并置 Incomplete。
func ExpectedPrice(lines []entity.OpportunityService, catalog map[string]entity.Service) ExpectedPriceResult {
	res := ExpectedPriceResult{TotalLines: len(lines)}
	for _, line := range lines {
		svc, ok := catalog[line.ServiceID]
		if !ok {
			res.Incomplete = true
			continue
		}
		res.Amount += svc.BaseCost * float64(line.Quantity)
		res.ResolvedLines++
	}
	return res
}

// QuoteBounds 报价边界
type QuoteBounds struct {
	Min       float64 `json:"min"`
	Suggested float64 `json:"suggested"`
}

// Bounds 由成本算最低/建议售价
func Bounds(baseCost float64, policy Policy) QuoteBounds {
	return QuoteBounds{
		Min:       baseCost * policy.MinMarkup,
		Suggested: baseCost * policy.SuggestedMarkup,
	}
}

// Margin 毛利率百分比。售价为 0 时定义为 0，保证下游聚合不会出现 NaN/Inf。
func Margin(sellPrice, baseCost float64) float64 {
	if sellPrice <= 0 {
		return 0
	}
	return (sellPrice - baseCost) / sellPrice * 100
}

// QuoteLine 报价总额计算输入行
type QuoteLine struct {
	Quantity  int
	UnitPrice float64
	BaseCost  float64
}

// QuoteTotalsResult 报价总额
type QuoteTotalsResult struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalCost    float64 `json:"total_cost"`
	MarginPct    float64 `json:"margin_pct"`
}

// QuoteTotals 汇总报价行：总收入、总成本、整体毛利率
func QuoteTotals(lines []QuoteLine) QuoteTotalsResult {
	var res QuoteTotalsResult
	for _, line := range lines {
		res.TotalRevenue += float64(line.Quantity) * line.UnitPrice
		res.TotalCost += float64(line.Quantity) * line.BaseCost
	}
	res.MarginPct = Margin(res.TotalRevenue, res.TotalCost)
	return res
}
