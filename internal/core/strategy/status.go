package strategy

import (
	"statarb-engine/internal/core/model"
	"statarb-engine/internal/stats/perf"
	"statarb-engine/internal/util/timeutil"
)

// StatusReport 策略状态快照
// 用于状态查询接口与周期性 JSONL 落盘
type StatusReport struct {
	// Running 是否在运行
	Running bool `json:"running"`
	// Cooling 是否处于冷却期
	Cooling bool `json:"cooling"`
	// ConsecutiveLosses 当前连续亏损计数
	ConsecutiveLosses int `json:"consecutive_losses"`
	// PairCount 注册交易对总数
	PairCount int `json:"pair_count"`
	// ActiveCount 激活交易对数
	ActiveCount int `json:"active_count"`
	// OpenPositions 未平仓交易对数
	OpenPositions int `json:"open_positions"`
	// Capital 当前可用资金
	Capital float64 `json:"capital"`
	// Equity 当前权益
	Equity float64 `json:"equity"`
	// TotalPnl 所有交易对累计已实现盈亏
	TotalPnl float64 `json:"total_pnl"`
	// WinRate 全局胜率（按笔数）
	WinRate float64 `json:"win_rate"`
	// Trades 滚动窗口绩效统计
	Trades perf.TradeStats `json:"trades"`
	// TsUnixNs 快照时间（纳秒）
	TsUnixNs int64 `json:"ts_unix_ns"`
}

// PairSummary 交易对概要
type PairSummary struct {
	// ID 交易对标识
	ID string `json:"id"`
	// Status 生命周期状态
	Status model.PairStatus `json:"status"`
	// Correlation 最近一次相关系数
	Correlation float64 `json:"correlation"`
	// Beta 对冲比率
	Beta float64 `json:"beta"`
	// HalfLife 半衰期
	HalfLife float64 `json:"half_life"`
	// HasPosition 是否有未平仓位
	HasPosition bool `json:"has_position"`
	// TotalTrades 完结交易笔数
	TotalTrades int64 `json:"total_trades"`
	// TotalPnl 累计已实现盈亏
	TotalPnl float64 `json:"total_pnl"`
	// WinRate 胜率
	WinRate float64 `json:"win_rate"`
}

// Status 获取策略状态快照
func (s *Strategy) Status() StatusReport {
	nowNs := timeutil.NowNano()

	var totalPnl float64
	var wins, trades int64
	for _, p := range s.pairs.All() {
		totalPnl += p.Performance.TotalPnl
		wins += p.Performance.WinCount
		trades += p.Performance.TotalTrades
	}
	var winRate float64
	if trades > 0 {
		winRate = float64(wins) / float64(trades)
	}

	return StatusReport{
		Running:           s.running,
		Cooling:           s.Cooling(nowNs),
		ConsecutiveLosses: s.consecutiveLosses,
		PairCount:         s.pairs.Count(),
		ActiveCount:       s.pairs.ActiveCount(),
		OpenPositions:     len(s.pairs.WithPositions()),
		Capital:           s.exec.Capital(),
		Equity:            s.exec.Equity(),
		TotalPnl:          totalPnl,
		WinRate:           winRate,
		Trades:            s.perf.Stats(),
		TsUnixNs:          nowNs,
	}
}

// PairDetails 获取单个交易对的完整记录
func (s *Strategy) PairDetails(pairID string) (*model.Pair, bool) {
	return s.pairs.Get(pairID)
}

// PairsSummary 获取所有交易对的概要列表
func (s *Strategy) PairsSummary() []PairSummary {
	all := s.pairs.All()
	out := make([]PairSummary, 0, len(all))
	for _, p := range all {
		out = append(out, PairSummary{
			ID:          p.ID,
			Status:      p.Status,
			Correlation: p.Stats.Correlation,
			Beta:        p.Stats.Beta,
			HalfLife:    p.Stats.HalfLife,
			HasPosition: p.HasPosition(),
			TotalTrades: p.Performance.TotalTrades,
			TotalPnl:    p.Performance.TotalPnl,
			WinRate:     p.Performance.WinRate(),
		})
	}
	return out
}
