// Package model 定义统计套利引擎中使用的核心数据结构。
package model

import (
	"sort"
	"strings"
)

// PairStatus 交易对生命周期状态
type PairStatus string

const (
	// PairPending 已注册，尚未通过统计验证
	PairPending PairStatus = "pending"
	// PairActive 已激活，可交易，计入活跃对上限
	PairActive PairStatus = "active"
	// PairSuspended 统计关系暂时失效，暂停交易
	PairSuspended PairStatus = "suspended"
	// PairBroken 统计关系破裂，等待移除
	PairBroken PairStatus = "broken"
)

// CointegrationResult 平稳性/协整检验结果
type CointegrationResult struct {
	// IsStationary 残差序列是否平稳（均值回归）
	IsStationary bool `json:"is_stationary"`
	// TestStat ADF 检验统计量
	TestStat float64 `json:"test_stat"`
	// CriticalValue 所选显著性水平下的临界值
	CriticalValue float64 `json:"critical_value"`
	// PValue 近似 p 值
	PValue float64 `json:"p_value"`
}

// PairStatistics 交易对统计快照
// 每次重估整体替换标量字段；Cointegration 仅在非 nil 时替换
type PairStatistics struct {
	// Correlation 两腿价格序列的 Pearson 相关系数
	Correlation float64 `json:"correlation"`
	// Alpha OLS 回归截距（A = alpha + beta×B + ε）
	Alpha float64 `json:"alpha"`
	// Beta OLS 回归斜率，即对冲比率
	Beta float64 `json:"beta"`
	// SpreadMean 残差价差均值
	SpreadMean float64 `json:"spread_mean"`
	// SpreadStd 残差价差标准差（总体口径，除以 N）
	SpreadStd float64 `json:"spread_std"`
	// HalfLife 均值回归半衰期（周期数；非均值回归为 +Inf）
	HalfLife float64 `json:"half_life"`
	// Hurst Hurst 指数（~0.5 为随机游走，<0.5 为均值回归）
	Hurst float64 `json:"hurst"`
	// Cointegration 平稳性检验结果，未检验时为 nil
	Cointegration *CointegrationResult `json:"cointegration,omitempty"`
}

// PairPerformance 交易对绩效累计
type PairPerformance struct {
	// TotalTrades 完结交易总数
	TotalTrades int64 `json:"total_trades"`
	// WinCount 盈利笔数
	WinCount int64 `json:"win_count"`
	// LossCount 亏损笔数
	LossCount int64 `json:"loss_count"`
	// TotalPnl 累计已实现盈亏
	TotalPnl float64 `json:"total_pnl"`
	// MaxDrawdown 单笔最大亏损幅度（绝对值，单调不减）
	MaxDrawdown float64 `json:"max_drawdown"`
}

// WinRate 计算胜率
// 无完结交易时返回 0
func (p *PairPerformance) WinRate() float64 {
	if p.TotalTrades == 0 {
		return 0
	}
	return float64(p.WinCount) / float64(p.TotalTrades)
}

// Pair 候选/活跃交易对
// 标识 = 两个品种按字典序排序后拼接，与参数顺序无关
type Pair struct {
	// ID 规范化标识，如 BTC/USDT:ETH/USDT
	ID string `json:"id"`
	// AssetA 排序后靠前的品种
	AssetA string `json:"asset_a"`
	// AssetB 排序后靠后的品种
	AssetB string `json:"asset_b"`
	// Status 生命周期状态
	Status PairStatus `json:"status"`
	// Stats 最近一次统计快照
	Stats PairStatistics `json:"stats"`
	// Position 当前持仓，无持仓为 nil
	// 与 OpenTimeNs 原子地同置/同清
	Position *Position `json:"position,omitempty"`
	// OpenTimeNs 开仓时间（纳秒），无持仓为 0
	OpenTimeNs int64 `json:"open_time_ns,omitempty"`
	// Performance 绩效累计
	Performance PairPerformance `json:"performance"`
}

// HasPosition 判断是否有未平仓位
func (p *Pair) HasPosition() bool {
	return p.Position != nil
}

// PairID 生成规范化交易对标识
// 两个品种按字典序排序后以 ":" 拼接，保证 (A,B) 与 (B,A) 映射到同一标识
func PairID(assetA, assetB string) string {
	syms := []string{assetA, assetB}
	sort.Strings(syms)
	return strings.Join(syms, ":")
}

// SortAssets 返回按字典序排序的两个品种
func SortAssets(assetA, assetB string) (first, second string) {
	if assetA <= assetB {
		return assetA, assetB
	}
	return assetB, assetA
}
