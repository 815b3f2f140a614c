// Package strategy 实现统计套利核心状态机。
// 每个行情事件驱动一次完整的处理流程：记录价格 → 周期性重估统计 →
// 生成信号 → 风控检查 → 通过执行接口开平仓 → 更新交易对状态与绩效。
// 所有状态变更均发生在聚合器 goroutine 中，不做内部加锁。
package strategy

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"statarb-engine/internal/config"
	"statarb-engine/internal/core/model"
	"statarb-engine/internal/core/pair"
	"statarb-engine/internal/core/store"
	"statarb-engine/internal/execution"
	"statarb-engine/internal/notify"
	"statarb-engine/internal/stats/perf"
	"statarb-engine/internal/util/timeutil"
)

// perfWindowSize 绩效统计滚动窗口大小（完结交易笔数）
const perfWindowSize = 200

// SignalHook 信号回调，用于落盘等外围处理
// 策略在聚合器 goroutine 中同步调用，回调不应阻塞。
type SignalHook func(sig *model.Signal)

// TradeHook 完结交易回调
type TradeHook func(trade *model.ClosedTrade)

// Strategy 统计套利策略
// 持有价格序列、交易对管理器和执行接口，驱动完整的开平仓生命周期。
type Strategy struct {
	// cfg 引擎配置
	cfg config.EngineConfig
	// arbType 套利类型
	arbType model.ArbType

	// store 价格序列存储
	store *store.Store
	// pairs 交易对管理器
	pairs *pair.Manager
	// exec 交易执行接口
	exec execution.Client
	// bus 生命周期事件总线，可为 nil
	bus *notify.Bus
	// perf 滚动绩效统计
	perf *perf.Tracker

	logger *zap.Logger

	// running 运行标志，Finish 后所有行情事件为 no-op
	running bool
	// consecutiveLosses 连续亏损计数，盈利时归零
	consecutiveLosses int
	// coolingUntilNs 冷却截止时间（纳秒），冷却期内不开新仓
	coolingUntilNs int64
	// tickCounts 按交易对的行情计数，驱动周期性统计重估
	tickCounts map[string]int
	// ineligibleRuns 挂起期间连续未通过门限的重估次数，达到上限判定关系破裂
	ineligibleRuns map[string]int

	// onSignal 非 nil 时每个非空信号都会回调
	onSignal SignalHook
	// onTrade 非 nil 时每笔完结交易都会回调
	onTrade TradeHook
}

// New 创建统计套利策略
// 参数 bus 可为 nil（不发布生命周期事件）。
func New(cfg config.EngineConfig, st *store.Store, pm *pair.Manager, exec execution.Client, bus *notify.Bus, logger *zap.Logger) *Strategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		cfg:            cfg,
		arbType:        model.ArbType(cfg.ArbType),
		store:          st,
		pairs:          pm,
		exec:           exec,
		bus:            bus,
		perf:           perf.NewTracker(perfWindowSize),
		logger:         logger.Named("strategy"),
		tickCounts:     make(map[string]int),
		ineligibleRuns: make(map[string]int),
	}
}

// SetSignalHook 设置信号回调
func (s *Strategy) SetSignalHook(h SignalHook) {
	s.onSignal = h
}

// SetTradeHook 设置完结交易回调
func (s *Strategy) SetTradeHook(h TradeHook) {
	s.onTrade = h
}

// Init 初始化策略
// 校验候选交易对列表并全部注册为 PENDING，置 running=true。
// 候选列表非法时返回错误并中止启动。
func (s *Strategy) Init() error {
	if len(s.cfg.CandidatePairs) == 0 {
		return fmt.Errorf("候选交易对列表为空")
	}
	for i, cp := range s.cfg.CandidatePairs {
		if cp.AssetA == "" || cp.AssetB == "" {
			return fmt.Errorf("候选交易对 [%d] 品种为空", i)
		}
		if cp.AssetA == cp.AssetB {
			return fmt.Errorf("候选交易对 [%d] 两腿品种相同: %s", i, cp.AssetA)
		}
		p := s.pairs.AddPair(cp.AssetA, cp.AssetB, nil)
		s.logger.Info("注册候选交易对",
			zap.String("pair_id", p.ID),
			zap.String("status", string(p.Status)))
	}

	s.running = true
	s.logger.Info("策略启动",
		zap.String("arb_type", string(s.arbType)),
		zap.Int("candidate_pairs", s.pairs.Count()),
		zap.Float64("entry_zscore", s.cfg.EntryZScore),
		zap.Float64("exit_zscore", s.cfg.ExitZScore),
		zap.Float64("stop_loss_zscore", s.cfg.StopLossZScore))
	return nil
}

// OnCandle 处理一个收盘价事件
// 未运行或无效蜡烛时为 no-op。记录价格后，对涉及该品种的每个交易对：
// 周期性重估统计，并在两腿历史数据充足时评估信号。
func (s *Strategy) OnCandle(c *model.Candle) {
	if !s.running || c == nil || !c.IsValid() {
		return
	}

	nowNs := timeutil.MsToNano(c.TsUnixMs)
	if c.TsUnixMs <= 0 {
		nowNs = timeutil.NowNano()
	}
	s.store.AddPriceAt(c.Symbol, c.Close, nowNs)

	for _, p := range s.pairs.All() {
		if p.AssetA != c.Symbol && p.AssetB != c.Symbol {
			continue
		}
		s.evaluatePair(p, nowNs)
	}
}

// evaluatePair 对单个交易对执行周期性统计重估与信号评估
func (s *Strategy) evaluatePair(p *model.Pair, nowNs int64) {
	if !s.store.HasEnoughData(p.AssetA, s.cfg.LookbackPeriod) ||
		!s.store.HasEnoughData(p.AssetB, s.cfg.LookbackPeriod) {
		return
	}

	s.tickCounts[p.ID]++
	if s.tickCounts[p.ID]%s.cfg.StatsRefreshTicks == 0 || s.tickCounts[p.ID] == 1 {
		s.analyzePair(p)
	}

	// 挂起/破裂的交易对仅允许平仓，不评估新开仓
	if p.Status != model.PairActive && !p.HasPosition() {
		return
	}

	pxA, okA := s.store.LatestPrice(p.AssetA)
	pxB, okB := s.store.LatestPrice(p.AssetB)
	if !okA || !okB {
		return
	}

	sig := s.GenerateSignal(p, pxA, pxB, nowNs)
	if sig == nil || sig.Type == model.SignalNone {
		return
	}
	if s.onSignal != nil {
		s.onSignal(sig)
	}

	switch {
	case sig.Type.IsOpen():
		s.openPosition(p, sig, pxA, pxB, nowNs)
	case sig.Type == model.SignalCloseSpread:
		s.closePosition(p, sig.Reason, pxA, pxB, nowNs)
	}
}

// openPosition 执行开仓
// 依次检查冷却状态、激活状态和仓位限制；任一不满足则放弃本次开仓。
// 两腿执行失败互不影响其他交易对；第二腿失败时回撤第一腿。
func (s *Strategy) openPosition(p *model.Pair, sig *model.Signal, pxA, pxB float64, nowNs int64) {
	if p.HasPosition() {
		return
	}
	if s.coolingUntilNs > 0 && nowNs < s.coolingUntilNs {
		s.logger.Debug("冷却期内抑制开仓",
			zap.String("pair_id", p.ID),
			zap.Int64("cooling_until_ns", s.coolingUntilNs))
		return
	}
	if p.Status != model.PairActive {
		return
	}

	amountA, amountB, ok := s.positionSize(p, pxA, pxB)
	if !ok {
		return
	}
	if !s.checkPositionLimits(amountA*pxA + amountB*pxB) {
		s.logger.Debug("仓位限制阻止开仓", zap.String("pair_id", p.ID))
		return
	}

	// 开多价差 = 买 A 卖 B；开空价差 = 卖 A 买 B
	var sideA, sideB model.LegSide
	var firstErr error
	if sig.Type == model.SignalOpenLongSpread {
		sideA, sideB = model.LegLong, model.LegShort
		firstErr = s.exec.Buy(p.AssetA, amountA)
	} else {
		sideA, sideB = model.LegShort, model.LegLong
		firstErr = s.exec.Sell(p.AssetA, amountA)
	}
	if firstErr != nil {
		s.logger.Warn("第一腿下单失败，放弃开仓",
			zap.String("pair_id", p.ID),
			zap.String("symbol", p.AssetA),
			zap.Error(firstErr))
		return
	}

	var secondErr error
	if sideB == model.LegLong {
		secondErr = s.exec.Buy(p.AssetB, amountB)
	} else {
		secondErr = s.exec.Sell(p.AssetB, amountB)
	}
	if secondErr != nil {
		s.logger.Warn("第二腿下单失败，回撤第一腿",
			zap.String("pair_id", p.ID),
			zap.String("symbol", p.AssetB),
			zap.Error(secondErr))
		if err := s.exec.ClosePosition(p.AssetA); err != nil {
			s.logger.Error("回撤第一腿失败，持仓可能不一致",
				zap.String("symbol", p.AssetA),
				zap.Error(err))
		}
		return
	}

	pos := &model.Position{
		Type:       sig.Type,
		LegA:       model.PositionLeg{Symbol: p.AssetA, Side: sideA, Amount: amountA, EntryPx: pxA},
		LegB:       model.PositionLeg{Symbol: p.AssetB, Side: sideB, Amount: amountB, EntryPx: pxB},
		OpenedAtNs: nowNs,
	}
	s.pairs.SetPosition(p.ID, pos)

	s.logger.Info("开仓",
		zap.String("pair_id", p.ID),
		zap.String("type", string(sig.Type)),
		zap.Float64("z_score", sig.ZScore),
		zap.Float64("spread", sig.Spread),
		zap.Float64("amount_a", amountA),
		zap.Float64("amount_b", amountB),
		zap.Float64("notional", pos.Notional()))
}

// positionSize 计算两腿下单数量
// z-score 路径按对冲比率 β 配比 B 腿数量，其余类型按名义价值对等配比；
// 配比后两腿合计名义价值超过 maxPositionPerPair × 当前资金时，
// 等比例缩减两腿，保持对冲比率不变。
func (s *Strategy) positionSize(p *model.Pair, pxA, pxB float64) (amountA, amountB float64, ok bool) {
	capital := s.exec.Capital()
	if capital <= 0 || pxA <= 0 || pxB <= 0 {
		return 0, 0, false
	}

	budget := s.cfg.MaxPositionPerPair * capital
	amountA = budget / pxA

	switch s.arbType {
	case model.ArbCointegration, model.ArbPairsTrading, model.ArbTriangular:
		beta := p.Stats.Beta
		if beta <= 0 || math.IsNaN(beta) || math.IsInf(beta, 0) {
			s.logger.Debug("对冲比率非法，放弃开仓",
				zap.String("pair_id", p.ID),
				zap.Float64("beta", beta))
			return 0, 0, false
		}
		amountB = amountA * beta
	default:
		amountB = budget / pxB
	}

	// 单对合计名义价值（两腿之和）封顶在 budget
	if notional := amountA*pxA + amountB*pxB; notional > budget {
		scale := budget / notional
		amountA *= scale
		amountB *= scale
	}

	if amountA <= 0 || amountB <= 0 {
		return 0, 0, false
	}
	return amountA, amountB, true
}

// checkPositionLimits 检查开仓是否越过总量限制
// 参数 projectedNotional: 拟新开仓位的名义价值
// 返回: true 表示允许开仓
func (s *Strategy) checkPositionLimits(projectedNotional float64) bool {
	open := s.pairs.WithPositions()
	if len(open) >= s.cfg.MaxActivePairs {
		return false
	}

	var totalNotional float64
	for _, p := range open {
		totalNotional += p.Position.Notional()
	}
	return totalNotional+projectedNotional <= s.cfg.MaxTotalPosition*s.exec.Capital()
}

// closePosition 执行平仓并结算一笔交易
// 执行接口报错仅记录日志，簿记仍然清理，保证引擎内部状态一致；
// 实际持仓差异交由执行方对账处理。
func (s *Strategy) closePosition(p *model.Pair, reason string, pxA, pxB float64, nowNs int64) {
	if !p.HasPosition() {
		return
	}
	pos := p.Position
	pnl := pos.PnL(pxA, pxB)

	if err := s.exec.ClosePosition(p.AssetA); err != nil {
		s.logger.Error("平仓失败",
			zap.String("pair_id", p.ID),
			zap.String("symbol", p.AssetA),
			zap.Error(err))
	}
	if err := s.exec.ClosePosition(p.AssetB); err != nil {
		s.logger.Error("平仓失败",
			zap.String("pair_id", p.ID),
			zap.String("symbol", p.AssetB),
			zap.Error(err))
	}

	trade := &model.ClosedTrade{
		PairID:     p.ID,
		Type:       pos.Type,
		OpenedAtNs: pos.OpenedAtNs,
		ClosedAtNs: nowNs,
		Pnl:        pnl,
		Reason:     reason,
	}

	s.pairs.SetPosition(p.ID, nil)
	s.pairs.RecordTradeResult(p.ID, pnl, trade.IsWin())
	s.perf.Add(trade)

	if trade.IsWin() {
		s.consecutiveLosses = 0
	} else {
		s.consecutiveLosses++
		if s.consecutiveLosses >= s.cfg.ConsecutiveLossLimit {
			s.coolingUntilNs = nowNs + int64(s.cfg.CoolingPeriodMs)*1_000_000
			s.consecutiveLosses = 0
			s.logger.Warn("连续亏损达到上限，进入冷却",
				zap.Int("loss_limit", s.cfg.ConsecutiveLossLimit),
				zap.Int64("cooling_until_ns", s.coolingUntilNs))
		}
	}

	if s.bus != nil {
		s.bus.Publish(notify.Event{
			Kind:     notify.EventTradeClosed,
			PairID:   p.ID,
			AssetA:   p.AssetA,
			AssetB:   p.AssetB,
			TsUnixNs: nowNs,
			Detail: map[string]float64{
				"pnl":     pnl,
				"hold_ms": float64(trade.HoldDurationMs()),
			},
		})
	}
	if s.onTrade != nil {
		s.onTrade(trade)
	}

	s.logger.Info("平仓",
		zap.String("pair_id", p.ID),
		zap.String("reason", reason),
		zap.Float64("pnl", pnl),
		zap.Int64("hold_ms", trade.HoldDurationMs()))
}

// Finish 停止策略并强制清算所有未平仓位
// 以最近一次存储价格做 mark-to-market 结算；取不到最新价时退回入场价。
// 单个交易对的清算失败不影响其余交易对。
func (s *Strategy) Finish() {
	if !s.running {
		return
	}
	s.running = false
	nowNs := timeutil.NowNano()

	open := s.pairs.WithPositions()
	if len(open) > 0 {
		s.logger.Info("强制清算未平仓位", zap.Int("count", len(open)))
	}
	for _, p := range open {
		pxA, okA := s.store.LatestPrice(p.AssetA)
		if !okA {
			pxA = p.Position.LegA.EntryPx
		}
		pxB, okB := s.store.LatestPrice(p.AssetB)
		if !okB {
			pxB = p.Position.LegB.EntryPx
		}
		s.closePosition(p, "liquidation", pxA, pxB, nowNs)
	}

	s.logger.Info("策略停止",
		zap.Float64("capital", s.exec.Capital()),
		zap.Float64("equity", s.exec.Equity()))
}

// Running 返回策略是否在运行
func (s *Strategy) Running() bool {
	return s.running
}

// Cooling 返回是否处于冷却期
func (s *Strategy) Cooling(nowNs int64) bool {
	return s.coolingUntilNs > 0 && nowNs < s.coolingUntilNs
}

// AddPair 注册新交易对
// 返回注册后的交易对（已存在时返回现有记录）。
func (s *Strategy) AddPair(assetA, assetB string) (*model.Pair, error) {
	if assetA == "" || assetB == "" {
		return nil, fmt.Errorf("品种不能为空")
	}
	if assetA == assetB {
		return nil, fmt.Errorf("两腿品种不能相同: %s", assetA)
	}
	return s.pairs.AddPair(assetA, assetB, nil), nil
}

// RemovePair 移除交易对
// 有未平仓位时拒绝移除。
func (s *Strategy) RemovePair(pairID string) error {
	p, ok := s.pairs.Get(pairID)
	if !ok {
		return fmt.Errorf("交易对不存在: %s", pairID)
	}
	if p.HasPosition() {
		return fmt.Errorf("交易对 %s 有未平仓位，拒绝移除", pairID)
	}
	s.pairs.Remove(pairID)
	delete(s.tickCounts, pairID)
	return nil
}
