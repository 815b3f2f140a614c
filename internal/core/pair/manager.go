// Package pair 实现交易对的生命周期管理与绩效记账。
// 负责标识规范化、状态流转、统计快照挂载、持仓登记与生命周期事件发布。
package pair

import (
	"statarb-engine/internal/core/model"
	"statarb-engine/internal/notify"
	"statarb-engine/internal/util/timeutil"
)

// Manager 交易对管理器
// 注意：与价格序列缓存相同，默认由聚合器单 goroutine 驱动，不加锁。
type Manager struct {
	// maxActivePairs 活跃对上限，Activate 在达到上限时拒绝
	maxActivePairs int
	// pairs 按规范化标识索引的全部交易对
	pairs map[string]*model.Pair
	// active 活跃对索引（status=active）
	active map[string]struct{}
	// bus 生命周期事件总线，可为 nil
	bus *notify.Bus
}

// New 创建交易对管理器
// 参数 maxActivePairs: 活跃对上限；非正值视为不限制
// 参数 bus: 生命周期事件总线，允许为 nil（不发布事件）
func New(maxActivePairs int, bus *notify.Bus) *Manager {
	return &Manager{
		maxActivePairs: maxActivePairs,
		pairs:          make(map[string]*model.Pair),
		active:         make(map[string]struct{}),
		bus:            bus,
	}
}

// AddPair 注册交易对（幂等）
// 不存在时以 pending 状态创建并发布 pair_added 事件；
// 已存在时仅合并传入的统计快照，不重置状态与持仓。
// 参数 stats: 可为 nil，表示不带初始统计
func (m *Manager) AddPair(assetA, assetB string, stats *model.PairStatistics) *model.Pair {
	id := model.PairID(assetA, assetB)

	if p, ok := m.pairs[id]; ok {
		if stats != nil {
			mergeStats(&p.Stats, *stats)
		}
		return p
	}

	first, second := model.SortAssets(assetA, assetB)
	p := &model.Pair{
		ID:     id,
		AssetA: first,
		AssetB: second,
		Status: model.PairPending,
	}
	if stats != nil {
		mergeStats(&p.Stats, *stats)
	}
	m.pairs[id] = p

	m.publish(notify.EventPairAdded, p, nil)
	return p
}

// UpdateStats 合并交易对统计快照
// 未知标识返回 false，不做任何修改。
func (m *Manager) UpdateStats(pairID string, stats model.PairStatistics) bool {
	p, ok := m.pairs[pairID]
	if !ok {
		return false
	}
	mergeStats(&p.Stats, stats)
	return true
}

// mergeStats 浅合并统计快照
// 标量字段整体覆盖；Cointegration 指针仅在传入非 nil 时替换，
// 避免一次未做检验的重估清掉既有检验结果。
func mergeStats(dst *model.PairStatistics, src model.PairStatistics) {
	prev := dst.Cointegration
	*dst = src
	if src.Cointegration == nil {
		dst.Cointegration = prev
	}
}

// Activate 激活交易对（pending/suspended → active）
// 活跃对数量已达上限时拒绝，返回 false 且不改变任何状态。
func (m *Manager) Activate(pairID string) bool {
	p, ok := m.pairs[pairID]
	if !ok {
		return false
	}
	if p.Status == model.PairActive {
		return true
	}
	if m.maxActivePairs > 0 && len(m.active) >= m.maxActivePairs {
		return false
	}

	p.Status = model.PairActive
	m.active[pairID] = struct{}{}
	m.publish(notify.EventPairActivated, p, nil)
	return true
}

// Deactivate 停用交易对（移出活跃集，记录保留）
// 未知标识返回 false。
func (m *Manager) Deactivate(pairID string) bool {
	p, ok := m.pairs[pairID]
	if !ok {
		return false
	}
	if _, isActive := m.active[pairID]; !isActive {
		return true
	}

	delete(m.active, pairID)
	p.Status = model.PairSuspended
	m.publish(notify.EventPairDeactivated, p, nil)
	return true
}

// MarkBroken 标记统计关系破裂（等待移除）
// 同时移出活跃集
func (m *Manager) MarkBroken(pairID string) bool {
	p, ok := m.pairs[pairID]
	if !ok {
		return false
	}
	if _, isActive := m.active[pairID]; isActive {
		delete(m.active, pairID)
		m.publish(notify.EventPairDeactivated, p, nil)
	}
	p.Status = model.PairBroken
	return true
}

// SetPosition 登记或清除持仓
// 传入非 nil 时挂载持仓并打开仓时间戳；传入 nil 时持仓与时间戳原子地同清。
func (m *Manager) SetPosition(pairID string, pos *model.Position) bool {
	p, ok := m.pairs[pairID]
	if !ok {
		return false
	}

	if pos == nil {
		p.Position = nil
		p.OpenTimeNs = 0
		return true
	}

	if pos.OpenedAtNs == 0 {
		pos.OpenedAtNs = timeutil.NowNano()
	}
	p.Position = pos
	p.OpenTimeNs = pos.OpenedAtNs
	return true
}

// RecordTradeResult 记录一笔完结交易
// totalPnl 累计盈亏（含亏损的负值）；maxDrawdown 跟踪单笔最大亏损幅度，单调不减。
func (m *Manager) RecordTradeResult(pairID string, pnl float64, isWin bool) bool {
	p, ok := m.pairs[pairID]
	if !ok {
		return false
	}

	perf := &p.Performance
	perf.TotalTrades++
	perf.TotalPnl += pnl
	if isWin {
		perf.WinCount++
	} else {
		perf.LossCount++
		if loss := -pnl; loss > perf.MaxDrawdown {
			perf.MaxDrawdown = loss
		}
	}
	return true
}

// Remove 移除交易对
// 有未平仓位时拒绝，返回 false。
func (m *Manager) Remove(pairID string) bool {
	p, ok := m.pairs[pairID]
	if !ok {
		return false
	}
	if p.HasPosition() {
		return false
	}

	delete(m.active, pairID)
	delete(m.pairs, pairID)
	return true
}

// Get 获取交易对
func (m *Manager) Get(pairID string) (*model.Pair, bool) {
	p, ok := m.pairs[pairID]
	return p, ok
}

// All 获取全部交易对
func (m *Manager) All() []*model.Pair {
	result := make([]*model.Pair, 0, len(m.pairs))
	for _, p := range m.pairs {
		result = append(result, p)
	}
	return result
}

// Active 获取全部活跃交易对
func (m *Manager) Active() []*model.Pair {
	result := make([]*model.Pair, 0, len(m.active))
	for id := range m.active {
		result = append(result, m.pairs[id])
	}
	return result
}

// ActiveCount 获取活跃对数量
func (m *Manager) ActiveCount() int {
	return len(m.active)
}

// WithPositions 获取有未平仓位的交易对
func (m *Manager) WithPositions() []*model.Pair {
	result := make([]*model.Pair, 0)
	for _, p := range m.pairs {
		if p.HasPosition() {
			result = append(result, p)
		}
	}
	return result
}

// Count 获取交易对总数
func (m *Manager) Count() int {
	return len(m.pairs)
}

// Clear 清空全部交易对与活跃集
func (m *Manager) Clear() {
	m.pairs = make(map[string]*model.Pair)
	m.active = make(map[string]struct{})
}

// publish 发布生命周期事件（bus 为 nil 时忽略）
func (m *Manager) publish(kind notify.EventKind, p *model.Pair, detail map[string]float64) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(notify.Event{
		Kind:     kind,
		PairID:   p.ID,
		AssetA:   p.AssetA,
		AssetB:   p.AssetB,
		TsUnixNs: timeutil.NowNano(),
		Detail:   detail,
	})
}
