// Package model 定义统计套利引擎中使用的核心数据结构。
package model

// LegSide 单腿方向
type LegSide string

const (
	// LegLong 多头腿
	LegLong LegSide = "long"
	// LegShort 空头腿
	LegShort LegSide = "short"
)

// PositionLeg 价差仓位的单腿
type PositionLeg struct {
	// Symbol 品种标识
	Symbol string `json:"symbol"`
	// Side 方向: long 或 short
	Side LegSide `json:"side"`
	// Amount 数量（基础币数量，非名义价值）
	Amount float64 `json:"amount"`
	// EntryPx 入场价格
	EntryPx float64 `json:"entry_px"`
}

// PnL 计算单腿浮动盈亏
// 多头: (当前价 - 入场价) × 数量
// 空头: (入场价 - 当前价) × 数量
func (l *PositionLeg) PnL(currentPx float64) float64 {
	if l.Side == LegLong {
		return (currentPx - l.EntryPx) * l.Amount
	}
	return (l.EntryPx - currentPx) * l.Amount
}

// Notional 计算单腿入场名义价值
func (l *PositionLeg) Notional() float64 {
	return l.EntryPx * l.Amount
}

// Position 价差仓位
// 由所属 Pair 独占持有，同一时间每个 Pair 至多一个
type Position struct {
	// Type 开仓信号类型: open_long_spread 或 open_short_spread
	Type SignalType `json:"type"`
	// LegA 资产 A 腿
	LegA PositionLeg `json:"leg_a"`
	// LegB 资产 B 腿
	LegB PositionLeg `json:"leg_b"`
	// OpenedAtNs 开仓时间（纳秒时间戳）
	OpenedAtNs int64 `json:"opened_at_ns"`
}

// PnL 计算仓位整体浮动盈亏
// 两腿盈亏之和，输入为两腿的当前价格
func (p *Position) PnL(currentPxA, currentPxB float64) float64 {
	return p.LegA.PnL(currentPxA) + p.LegB.PnL(currentPxB)
}

// Notional 计算仓位整体入场名义价值（两腿之和）
func (p *Position) Notional() float64 {
	return p.LegA.Notional() + p.LegB.Notional()
}

// ClosedTrade 已平仓交易记录
// 用于 JSONL 落盘与绩效统计
type ClosedTrade struct {
	// PairID 交易对标识
	PairID string `json:"pair_id"`
	// Type 开仓信号类型
	Type SignalType `json:"type"`
	// OpenedAtNs 开仓时间（纳秒）
	OpenedAtNs int64 `json:"opened_at_ns"`
	// ClosedAtNs 平仓时间（纳秒）
	ClosedAtNs int64 `json:"closed_at_ns"`
	// Pnl 已实现盈亏（计价货币）
	Pnl float64 `json:"pnl"`
	// Reason 平仓原因: exit / stop_loss / liquidation
	Reason string `json:"reason"`
}

// IsWin 判断是否盈利
func (t *ClosedTrade) IsWin() bool {
	return t.Pnl > 0
}

// HoldDurationMs 获取持仓时长（毫秒）
func (t *ClosedTrade) HoldDurationMs() int64 {
	return (t.ClosedAtNs - t.OpenedAtNs) / 1_000_000
}
