// Package perf 实现完结交易的滚动绩效统计。
// 维护胜率、平均盈利/亏损、期望值与盈亏分位数，供策略状态查询与落盘。
package perf

import (
	"sort"

	"statarb-engine/internal/core/model"
)

type tradeSample struct {
	win    bool
	pnl    float64
	pairID string
}

// TradeStats 绩效统计快照（滚动窗口）
type TradeStats struct {
	// Count 样本数
	Count int64 `json:"count"`
	// WinCount 盈利样本数（pnl>0）
	WinCount int64 `json:"win_count"`
	// LossCount 亏损样本数（pnl<=0）
	LossCount int64 `json:"loss_count"`

	// WinRate 胜率
	WinRate float64 `json:"win_rate"`
	// AvgWin 平均单笔盈利
	AvgWin float64 `json:"avg_win"`
	// AvgLoss 平均单笔亏损（绝对值）
	AvgLoss float64 `json:"avg_loss"`
	// Expectancy 单笔期望值: p×W - (1-p)×L
	Expectancy float64 `json:"expectancy"`

	// PnlP50 盈亏 P50 分位
	PnlP50 float64 `json:"pnl_p50"`
	// PnlP90 盈亏 P90 分位
	PnlP90 float64 `json:"pnl_p90"`
	// PnlP99 盈亏 P99 分位
	PnlP99 float64 `json:"pnl_p99"`
}

// Tracker 滚动绩效追踪器
// 环形缓冲区实现 O(1) 更新；分位数在查询时对窗口快照排序计算。
type Tracker struct {
	// windowSize 滚动窗口大小
	windowSize int
	// buf 环形缓冲区
	buf []tradeSample
	// pos 写入位置
	pos int
	// full 是否已填满
	full bool

	// 维护滚动统计（O(1) 更新）
	count     int64
	winCount  int64
	lossCount int64
	sumWin    float64
	sumLoss   float64
}

// NewTracker 创建绩效追踪器
// 参数 windowSize: 滚动窗口大小（建议 1000）
func NewTracker(windowSize int) *Tracker {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &Tracker{
		windowSize: windowSize,
		buf:        make([]tradeSample, windowSize),
	}
}

// Add 添加一笔完结交易到滚动统计
func (t *Tracker) Add(trade *model.ClosedTrade) {
	if trade == nil {
		return
	}

	s := tradeSample{
		win:    trade.IsWin(),
		pnl:    trade.Pnl,
		pairID: trade.PairID,
	}

	// 若环已满，移除旧样本对统计的贡献
	if t.full {
		old := t.buf[t.pos]
		t.count--
		if old.win {
			t.winCount--
			t.sumWin -= old.pnl
		} else {
			t.lossCount--
			t.sumLoss -= -old.pnl
		}
	}

	t.buf[t.pos] = s
	t.pos++
	if t.pos >= t.windowSize {
		t.pos = 0
		t.full = true
	}

	t.count++
	if s.win {
		t.winCount++
		t.sumWin += s.pnl
	} else {
		t.lossCount++
		t.sumLoss += -s.pnl
	}
}

// Stats 返回滚动窗口统计快照
func (t *Tracker) Stats() TradeStats {
	out := TradeStats{
		Count:     t.count,
		WinCount:  t.winCount,
		LossCount: t.lossCount,
	}
	if t.count <= 0 {
		return out
	}

	out.WinRate = float64(t.winCount) / float64(t.count)
	if t.winCount > 0 {
		out.AvgWin = t.sumWin / float64(t.winCount)
	}
	if t.lossCount > 0 {
		out.AvgLoss = t.sumLoss / float64(t.lossCount)
	}

	// Expectancy = p×W - (1-p)×L
	out.Expectancy = out.WinRate*out.AvgWin - (1-out.WinRate)*out.AvgLoss

	qs := t.quantiles(0.50, 0.90, 0.99)
	out.PnlP50, out.PnlP90, out.PnlP99 = qs[0], qs[1], qs[2]

	return out
}

// quantiles 计算窗口内盈亏的指定分位数
// 复制窗口快照后排序，近邻取值（不插值）。
func (t *Tracker) quantiles(qs ...float64) []float64 {
	n := len(t.buf)
	if !t.full {
		n = t.pos
	}
	if n == 0 {
		return make([]float64, len(qs))
	}

	tmp := make([]float64, n)
	for i := 0; i < n; i++ {
		tmp[i] = t.buf[i].pnl
	}
	sort.Float64s(tmp)

	values := make([]float64, len(qs))
	for i, q := range qs {
		idx := int(float64(n-1) * q)
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		values[i] = tmp[idx]
	}
	return values
}
