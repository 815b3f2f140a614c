// Package model 定义统计套利引擎中使用的核心数据结构。
package model

// ArbType 套利类型
type ArbType string

const (
	// ArbCointegration 协整套利
	// 使用 OLS 残差价差 + 平稳性检验驱动
	ArbCointegration ArbType = "cointegration"
	// ArbPairsTrading 配对交易（默认）
	// 与协整套利共用 z-score 信号逻辑
	ArbPairsTrading ArbType = "pairs_trading"
	// ArbCrossExchange 跨交易所价差套利
	// 使用百分比价差扣除往返成本后判定
	ArbCrossExchange ArbType = "cross_exchange"
	// ArbPerpetualSpot 永续/现货基差套利
	// 使用年化基差阈值判定
	ArbPerpetualSpot ArbType = "perpetual_spot"
	// ArbTriangular 三角套利
	// 信号逻辑退化为 z-score 路径（见 DESIGN.md 决策）
	ArbTriangular ArbType = "triangular"
)

// SignalType 信号类型
type SignalType string

const (
	// SignalOpenLongSpread 开多价差
	// 做多资产 A / 做空资产 B（价差显著低于均值）
	SignalOpenLongSpread SignalType = "open_long_spread"
	// SignalOpenShortSpread 开空价差
	// 做空资产 A / 做多资产 B（价差显著高于均值）
	SignalOpenShortSpread SignalType = "open_short_spread"
	// SignalCloseSpread 平掉价差仓位
	SignalCloseSpread SignalType = "close_spread"
	// SignalNone 无信号
	SignalNone SignalType = "no_signal"
)

// IsOpen 判断是否为开仓信号
func (t SignalType) IsOpen() bool {
	return t == SignalOpenLongSpread || t == SignalOpenShortSpread
}

// Signal 交易信号
// 每次评估新生成，不做持久化；携带触发上下文便于落盘复盘
type Signal struct {
	// Type 信号类型
	Type SignalType `json:"type"`
	// PairID 触发信号的交易对标识
	PairID string `json:"pair_id"`
	// Spread 触发时的价差标量
	Spread float64 `json:"spread"`
	// ZScore 触发时的 z-score（z-score 路径有效，否则为 0）
	ZScore float64 `json:"z_score,omitempty"`
	// Reason 触发原因，如 entry / exit / stop_loss / basis_entry
	Reason string `json:"reason,omitempty"`
	// DetectedAtNs 信号检测时间（纳秒时间戳）
	DetectedAtNs int64 `json:"detected_at_ns"`
}
