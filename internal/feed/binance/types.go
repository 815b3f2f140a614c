// Package binance 定义 Binance 行情消息类型。
package binance

// SubscribeRequest Binance WebSocket 订阅请求
// 订阅 miniTicker 行情流。
type SubscribeRequest struct {
	// Method 订阅方法: SUBSCRIBE
	Method string `json:"method"`
	// Params 订阅参数列表，如 "btcusdt@miniTicker"
	Params []string `json:"params"`
	// ID 请求 ID
	ID int64 `json:"id"`
}

// MiniTicker Binance miniTicker 推送消息（24hrMiniTicker）
// 字段映射：
// - e: 事件类型（24hrMiniTicker）
// - E: 事件时间（毫秒） -> Candle.TsUnixMs
// - s: Symbol（如 BTCUSDT）
// - c: 最新收盘价（字符串） -> Candle.Close
// - v: 24h 成交量（字符串） -> Candle.Volume
type MiniTicker struct {
	// EventType 事件类型: 24hrMiniTicker
	EventType string `json:"e"`
	// EventTimeMs 事件时间（毫秒）
	EventTimeMs int64 `json:"E"`
	// Symbol 交易对（大写）
	Symbol string `json:"s"`
	// Close 最新收盘价
	Close string `json:"c"`
	// Volume 24h 成交量
	Volume string `json:"v"`
}

// ConnectionMetrics 连接质量指标
type ConnectionMetrics struct {
	// ReconnectCount 重连次数
	ReconnectCount int64
	// ParseErrorCount 解析错误次数
	ParseErrorCount int64
	// UpdatesPerSec 每秒更新次数
	UpdatesPerSec float64
	// LastMessageAgeMs 最后消息距今时间（毫秒）
	LastMessageAgeMs int64
}
