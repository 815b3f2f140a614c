// Package model 定义统计套利引擎中使用的核心数据结构。
// 包含行情蜡烛、交易对、仓位、信号等核心类型。
package model

// Candle 单个品种的收盘价事件
// 引擎的唯一行情入口：每个品种每根 K 线收盘推送一次
type Candle struct {
	// Symbol 品种标识，如 BTC/USDT
	Symbol string `json:"symbol"`
	// Close 收盘价
	Close float64 `json:"close"`
	// Volume 成交量（可选，引擎不依赖）
	Volume float64 `json:"volume,omitempty"`
	// TsUnixMs 收盘时间戳（毫秒）
	// 为 0 时由引擎以本机时间补齐
	TsUnixMs int64 `json:"ts_unix_ms"`
	// FundingRate 资金费率（可选，perpetual_spot 模式使用）
	FundingRate float64 `json:"funding_rate,omitempty"`
}

// IsValid 检查蜡烛是否有效
// 有效条件: 品种非空且收盘价大于 0
func (c *Candle) IsValid() bool {
	return c.Symbol != "" && c.Close > 0
}
