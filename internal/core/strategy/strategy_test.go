package strategy

import (
	"fmt"
	"math"
	"testing"

	"statarb-engine/internal/config"
	"statarb-engine/internal/core/model"
	"statarb-engine/internal/core/pair"
	"statarb-engine/internal/core/store"
	"statarb-engine/internal/notify"
)

// fakeExec 测试用执行接口桩
// 记录所有调用，持仓按品种累加
type fakeExec struct {
	capital   float64
	positions map[string]float64
	orders    []string
	failNext  bool
}

func newFakeExec(capital float64) *fakeExec {
	return &fakeExec{capital: capital, positions: make(map[string]float64)}
}

func (f *fakeExec) Buy(symbol string, amount float64) error {
	if f.failNext {
		f.failNext = false
		return fmt.Errorf("模拟下单失败")
	}
	f.positions[symbol] += amount
	f.orders = append(f.orders, "buy:"+symbol)
	return nil
}

func (f *fakeExec) Sell(symbol string, amount float64) error {
	if f.failNext {
		f.failNext = false
		return fmt.Errorf("模拟下单失败")
	}
	f.positions[symbol] -= amount
	f.orders = append(f.orders, "sell:"+symbol)
	return nil
}

func (f *fakeExec) BuyPercent(symbol string, percent float64) error {
	f.orders = append(f.orders, "buy_percent:"+symbol)
	return nil
}

func (f *fakeExec) ClosePosition(symbol string) error {
	delete(f.positions, symbol)
	f.orders = append(f.orders, "close:"+symbol)
	return nil
}

func (f *fakeExec) Position(symbol string) float64 { return f.positions[symbol] }
func (f *fakeExec) Capital() float64               { return f.capital }
func (f *fakeExec) Equity() float64                { return f.capital }

// testEngineConfig 返回带默认值的测试配置
func testEngineConfig(arbType string) config.EngineConfig {
	return config.EngineConfig{
		ArbType: arbType,
		CandidatePairs: []config.CandidatePair{
			{AssetA: "BTC/USDT", AssetB: "ETH/USDT"},
		},
		EntryZScore:             2.0,
		ExitZScore:              0.5,
		StopLossZScore:          4.0,
		LookbackPeriod:          60,
		CointegrationTestPeriod: 100,
		StatsRefreshTicks:       20,
		MaxSeriesLength:         500,
		MaxPositionPerPair:      0.1,
		MaxTotalPosition:        0.5,
		MaxActivePairs:          10,
		MinCorrelation:          0.8,
		MinHalfLife:             1,
		MaxHalfLife:             100,
		SpreadEntryThreshold:    0.003,
		TradingCost:             0.001,
		SlippageEstimate:        0.0005,
		BasisEntryThreshold:     0.05,
		BasisExitThreshold:      0.01,
		BasisPeriodDays:         1,
		ConsecutiveLossLimit:    3,
		CoolingPeriodMs:         1_800_000,
	}
}

// newTestStrategy 构造测试策略与协作方
func newTestStrategy(cfg config.EngineConfig) (*Strategy, *store.Store, *pair.Manager, *fakeExec) {
	st := store.New(cfg.MaxSeriesLength)
	pm := pair.New(cfg.MaxActivePairs, notify.NewBus())
	exec := newFakeExec(100_000)
	s := New(cfg, st, pm, exec, nil, nil)
	return s, st, pm, exec
}

func TestInitRegistersCandidates(t *testing.T) {
	s, _, pm, _ := newTestStrategy(testEngineConfig("pairs_trading"))

	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}
	if !s.Running() {
		t.Fatalf("Init 后应为运行状态")
	}

	p, ok := pm.Get("BTC/USDT:ETH/USDT")
	if !ok {
		t.Fatalf("候选交易对未注册")
	}
	if p.Status != model.PairPending {
		t.Fatalf("新注册交易对状态应为 pending，实际: %s", p.Status)
	}
}

func TestInitRejectsMalformedCandidates(t *testing.T) {
	cfg := testEngineConfig("pairs_trading")
	cfg.CandidatePairs = []config.CandidatePair{{AssetA: "BTC/USDT", AssetB: "BTC/USDT"}}
	s, _, _, _ := newTestStrategy(cfg)

	if err := s.Init(); err == nil {
		t.Fatalf("两腿相同的候选交易对应当导致 Init 失败")
	}

	cfg.CandidatePairs = nil
	s, _, _, _ = newTestStrategy(cfg)
	if err := s.Init(); err == nil {
		t.Fatalf("空候选列表应当导致 Init 失败")
	}
}

// TestZScoreSignalScenarios 验证 z-score 路径的三个端到端场景
// stats = {alpha:0, beta:16.5, mean:0, std:100}，价格 A=50000 B=3000：
// spread = 50000 − 16.5×3000 = 500
func TestZScoreSignalScenarios(t *testing.T) {
	s, _, _, _ := newTestStrategy(testEngineConfig("pairs_trading"))

	p := &model.Pair{
		ID:     "BTC/USDT:ETH/USDT",
		AssetA: "BTC/USDT",
		AssetB: "ETH/USDT",
		Status: model.PairActive,
		Stats: model.PairStatistics{
			Alpha:      0,
			Beta:       16.5,
			SpreadMean: 0,
			SpreadStd:  100,
		},
	}

	// z = 500/100 = 5 >= 2 → 开空价差
	sig := s.GenerateSignal(p, 50000, 3000, 1)
	if sig.Type != model.SignalOpenShortSpread {
		t.Fatalf("z=5 应产生 open_short_spread，实际: %s", sig.Type)
	}
	if math.Abs(sig.ZScore-5) > 1e-9 {
		t.Fatalf("z-score 应为 5，实际: %f", sig.ZScore)
	}

	// mean=1000: z = (500−1000)/100 = −5 <= −2 → 开多价差
	p.Stats.SpreadMean = 1000
	sig = s.GenerateSignal(p, 50000, 3000, 1)
	if sig.Type != model.SignalOpenLongSpread {
		t.Fatalf("z=-5 应产生 open_long_spread，实际: %s", sig.Type)
	}

	// mean=500 std=500: z = 0 → 无信号
	p.Stats.SpreadMean = 500
	p.Stats.SpreadStd = 500
	sig = s.GenerateSignal(p, 50000, 3000, 1)
	if sig.Type != model.SignalNone {
		t.Fatalf("z=0 应无信号，实际: %s", sig.Type)
	}
}

// TestZScoreCloseAndStopLoss 验证持仓状态下止损优先于回归出场
func TestZScoreCloseAndStopLoss(t *testing.T) {
	s, _, _, _ := newTestStrategy(testEngineConfig("pairs_trading"))

	p := &model.Pair{
		ID:     "BTC/USDT:ETH/USDT",
		AssetA: "BTC/USDT",
		AssetB: "ETH/USDT",
		Status: model.PairActive,
		Stats:  model.PairStatistics{Alpha: 0, Beta: 16.5, SpreadMean: 0, SpreadStd: 100},
		Position: &model.Position{
			Type: model.SignalOpenShortSpread,
			LegA: model.PositionLeg{Symbol: "BTC/USDT", Side: model.LegShort, Amount: 0.1, EntryPx: 50000},
			LegB: model.PositionLeg{Symbol: "ETH/USDT", Side: model.LegLong, Amount: 1.5, EntryPx: 3000},
		},
	}

	// |z| = 5 >= 止损阈值 4 → 强制平仓
	sig := s.GenerateSignal(p, 50000, 3000, 1)
	if sig.Type != model.SignalCloseSpread || sig.Reason != "stop_loss" {
		t.Fatalf("|z|=5 持仓时应触发止损平仓，实际: %s/%s", sig.Type, sig.Reason)
	}

	// |z| = 0.3 <= 出场阈值 0.5 → 回归平仓
	p.Stats.SpreadMean = 470
	sig = s.GenerateSignal(p, 50000, 3000, 1)
	if sig.Type != model.SignalCloseSpread || sig.Reason != "exit" {
		t.Fatalf("|z|=0.3 持仓时应触发回归平仓，实际: %s/%s", sig.Type, sig.Reason)
	}

	// |z| = 2.5：既不止损也不出场 → 持有
	p.Stats.SpreadMean = 250
	sig = s.GenerateSignal(p, 50000, 3000, 1)
	if sig.Type != model.SignalNone {
		t.Fatalf("持仓区间内应无信号，实际: %s", sig.Type)
	}
}

// TestCointegrationRequiresStationarity 协整类型开仓需通过平稳性检验
func TestCointegrationRequiresStationarity(t *testing.T) {
	s, _, _, _ := newTestStrategy(testEngineConfig("cointegration"))

	p := &model.Pair{
		ID:     "BTC/USDT:ETH/USDT",
		AssetA: "BTC/USDT",
		AssetB: "ETH/USDT",
		Status: model.PairActive,
		Stats:  model.PairStatistics{Alpha: 0, Beta: 16.5, SpreadMean: 0, SpreadStd: 100},
	}

	// 无检验结果 → 不开仓
	sig := s.GenerateSignal(p, 50000, 3000, 1)
	if sig.Type != model.SignalNone {
		t.Fatalf("未通过平稳性检验时不应开仓，实际: %s", sig.Type)
	}

	p.Stats.Cointegration = &model.CointegrationResult{IsStationary: true}
	sig = s.GenerateSignal(p, 50000, 3000, 1)
	if sig.Type != model.SignalOpenShortSpread {
		t.Fatalf("平稳残差 z=5 应开空价差，实际: %s", sig.Type)
	}
}

// TestPersistentIneligibilityBreaksPair 挂起后连续重估不达标应判定关系破裂
func TestPersistentIneligibilityBreaksPair(t *testing.T) {
	s, st, pm, _ := newTestStrategy(testEngineConfig("pairs_trading"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}

	p, ok := pm.Get("BTC/USDT:ETH/USDT")
	if !ok {
		t.Fatal("候选交易对未注册")
	}
	pm.Activate(p.ID)

	// B 腿恒定使相关性为 0，统计门限必然不达标
	for i := 0; i < 100; i++ {
		st.AddPrice("BTC/USDT", 50000+float64(i))
		st.AddPrice("ETH/USDT", 3000)
	}

	s.analyzePair(p)
	if p.Status != model.PairSuspended {
		t.Fatalf("首次不达标应挂起，实际: %s", p.Status)
	}

	// 持仓未平时不判定破裂
	pm.SetPosition(p.ID, &model.Position{})
	for i := 0; i < 3; i++ {
		s.analyzePair(p)
	}
	if p.Status == model.PairBroken {
		t.Fatal("持仓未平时不应判定破裂")
	}

	pm.SetPosition(p.ID, nil)
	s.analyzePair(p)
	if p.Status != model.PairBroken {
		t.Fatalf("连续不达标后应判定破裂，实际: %s", p.Status)
	}

	// 破裂后不再参与激活
	s.analyzePair(p)
	if p.Status != model.PairBroken {
		t.Fatalf("破裂状态应保持，实际: %s", p.Status)
	}
}

// TestCrossExchangeSignal 跨交易所场景
// 50500/50000 → 价差 1%，净价差 1% − 0.3% = 0.7% > 0.3% 阈值
func TestCrossExchangeSignal(t *testing.T) {
	s, _, _, _ := newTestStrategy(testEngineConfig("cross_exchange"))

	p := &model.Pair{
		ID:     "binance:BTC/USDT:okx:BTC/USDT",
		AssetA: "binance:BTC/USDT",
		AssetB: "okx:BTC/USDT",
		Status: model.PairActive,
	}

	sig := s.GenerateSignal(p, 50500, 50000, 1)
	if sig.Type != model.SignalOpenShortSpread {
		t.Fatalf("净价差 0.7%% 应开空价差，实际: %s", sig.Type)
	}

	// 50010/50000 → 价差 0.02%，扣成本后为负 → 无信号
	sig = s.GenerateSignal(p, 50010, 50000, 1)
	if sig.Type != model.SignalNone {
		t.Fatalf("价差不覆盖成本时应无信号，实际: %s", sig.Type)
	}

	// 反向价差
	sig = s.GenerateSignal(p, 49500, 50000, 1)
	if sig.Type != model.SignalOpenLongSpread {
		t.Fatalf("负净价差应开多价差，实际: %s", sig.Type)
	}

	// 持仓状态：价差收敛到不覆盖往返成本 → 平仓
	p.Position = &model.Position{
		Type: model.SignalOpenShortSpread,
		LegA: model.PositionLeg{Symbol: p.AssetA, Side: model.LegShort, Amount: 0.1, EntryPx: 50500},
		LegB: model.PositionLeg{Symbol: p.AssetB, Side: model.LegLong, Amount: 0.1, EntryPx: 50000},
	}
	sig = s.GenerateSignal(p, 50010, 50000, 1)
	if sig.Type != model.SignalCloseSpread {
		t.Fatalf("价差收敛后应平仓，实际: %s", sig.Type)
	}
}

// TestBasisSignal 永续/现货基差场景
// basis(50050, 50000) = 0.001，年化（1 天）= 0.365 > 0.05 入场阈值
func TestBasisSignal(t *testing.T) {
	s, _, _, _ := newTestStrategy(testEngineConfig("perpetual_spot"))

	p := &model.Pair{
		ID:     "BTC-PERP:BTC/USDT",
		AssetA: "BTC-PERP",
		AssetB: "BTC/USDT",
		Status: model.PairActive,
	}

	sig := s.GenerateSignal(p, 50050, 50000, 1)
	if sig.Type != model.SignalOpenShortSpread {
		t.Fatalf("年化基差 0.365 应做空衍生品腿，实际: %s", sig.Type)
	}

	sig = s.GenerateSignal(p, 49950, 50000, 1)
	if sig.Type != model.SignalOpenLongSpread {
		t.Fatalf("负年化基差应做多衍生品腿，实际: %s", sig.Type)
	}

	// 持仓状态：基差回落到出场阈值内 → 平仓
	p.Position = &model.Position{
		Type: model.SignalOpenShortSpread,
		LegA: model.PositionLeg{Symbol: p.AssetA, Side: model.LegShort, Amount: 0.1, EntryPx: 50050},
		LegB: model.PositionLeg{Symbol: p.AssetB, Side: model.LegLong, Amount: 0.1, EntryPx: 50000},
	}
	sig = s.GenerateSignal(p, 50001, 50000, 1)
	if sig.Type != model.SignalCloseSpread {
		t.Fatalf("基差回落后应平仓，实际: %s", sig.Type)
	}
}

// TestPositionLimitsBlockOpen 持仓对数达到上限后阻止开仓
func TestPositionLimitsBlockOpen(t *testing.T) {
	cfg := testEngineConfig("pairs_trading")
	cfg.MaxActivePairs = 1
	s, _, pm, _ := newTestStrategy(cfg)
	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}

	pm.AddPair("SOL/USDT", "AVAX/USDT", nil)
	pm.SetPosition("AVAX/USDT:SOL/USDT", &model.Position{
		Type: model.SignalOpenLongSpread,
		LegA: model.PositionLeg{Symbol: "AVAX/USDT", Side: model.LegLong, Amount: 10, EntryPx: 30},
		LegB: model.PositionLeg{Symbol: "SOL/USDT", Side: model.LegShort, Amount: 2, EntryPx: 150},
	})

	if s.checkPositionLimits(1000) {
		t.Fatalf("持仓对数达到上限后应阻止开仓")
	}
}

// TestTotalNotionalLimit 总名义仓位超限阻止开仓
func TestTotalNotionalLimit(t *testing.T) {
	s, _, _, _ := newTestStrategy(testEngineConfig("pairs_trading"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}

	// capital=100000, maxTotal=0.5 → 名义上限 50000
	if !s.checkPositionLimits(49_000) {
		t.Fatalf("49000 名义价值应在限制内")
	}
	if s.checkPositionLimits(51_000) {
		t.Fatalf("51000 名义价值应超限")
	}
}

// TestPositionSizeHedgeRatio z-score 路径 B 腿按对冲比率配比
func TestPositionSizeHedgeRatio(t *testing.T) {
	s, _, _, _ := newTestStrategy(testEngineConfig("pairs_trading"))

	p := &model.Pair{
		ID: "BTC/USDT:ETH/USDT", AssetA: "BTC/USDT", AssetB: "ETH/USDT",
		Stats: model.PairStatistics{Beta: 16.5},
	}

	// budget = 0.1×100000 = 10000；配比后两腿合计封顶在 budget，对冲比率保持不变
	amountA, amountB, ok := s.positionSize(p, 50000, 3000)
	if !ok {
		t.Fatalf("正常参数下 positionSize 不应失败")
	}
	if math.Abs(amountB/amountA-16.5) > 1e-9 {
		t.Fatalf("对冲比率应保持 16.5，实际: %f", amountB/amountA)
	}
	if notional := amountA*50000 + amountB*3000; math.Abs(notional-10000) > 1e-6 {
		t.Fatalf("合计名义价值应封顶在 10000，实际: %f", notional)
	}

	// 非法对冲比率
	p.Stats.Beta = -1
	if _, _, ok := s.positionSize(p, 50000, 3000); ok {
		t.Fatalf("负对冲比率应拒绝开仓")
	}
}

// TestPositionSizeCapsPairNotional 大对冲比率下单对名义价值不得突破上限
func TestPositionSizeCapsPairNotional(t *testing.T) {
	s, _, pm, _ := newTestStrategy(testEngineConfig("pairs_trading"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}

	p, _ := pm.Get("BTC/USDT:ETH/USDT")
	p.Status = model.PairActive
	// β=50 时未封顶的 B 腿名义价值是 budget 的数倍
	p.Stats = model.PairStatistics{Alpha: 0, Beta: 50, SpreadMean: 0, SpreadStd: 1}

	pxA, pxB := 50000.0, 3000.0
	amountA, amountB, ok := s.positionSize(p, pxA, pxB)
	if !ok {
		t.Fatalf("positionSize 不应失败")
	}
	budget := s.cfg.MaxPositionPerPair * s.exec.Capital()
	if notional := amountA*pxA + amountB*pxB; notional > budget+1e-6 {
		t.Fatalf("合计名义价值 %f 超过单对上限 %f", notional, budget)
	}
	if math.Abs(amountB/amountA-50) > 1e-9 {
		t.Fatalf("封顶缩减应保持对冲比率，实际: %f", amountB/amountA)
	}

	// 经 openPosition 落地的仓位同样受限
	sig := &model.Signal{Type: model.SignalOpenShortSpread, PairID: p.ID}
	s.openPosition(p, sig, pxA, pxB, 1)
	if !p.HasPosition() {
		t.Fatalf("开仓应成功")
	}
	if got := p.Position.Notional(); got > budget+1e-6 {
		t.Fatalf("落地仓位名义价值 %f 超过单对上限 %f", got, budget)
	}
}

// feedPair 依次向策略推送两腿蜡烛
func feedPair(s *Strategy, tsMs int64, pxB, pxA float64) {
	s.OnCandle(&model.Candle{Symbol: "ETH/USDT", Close: pxB, TsUnixMs: tsMs})
	s.OnCandle(&model.Candle{Symbol: "BTC/USDT", Close: pxA, TsUnixMs: tsMs})
}

// TestEndToEndOpenClose 端到端：数据驱动的激活 → 开仓 → 回归平仓
// 构造 A ≈ 2B + 残差 的强均值回归序列，注入价差尖峰触发开空，
// 随后回归触发平仓并结算绩效。
func TestEndToEndOpenClose(t *testing.T) {
	cfg := testEngineConfig("pairs_trading")
	cfg.MinHalfLife = 0.1 // 合成残差回归极快
	s, _, pm, exec := newTestStrategy(cfg)
	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}

	var trades []*model.ClosedTrade
	s.SetTradeHook(func(tr *model.ClosedTrade) { trades = append(trades, tr) })

	// 预热：B 线性爬升，残差 ±10 交替（均值 0、标准差 10、强回归）
	tsMs := int64(1_700_000_000_000)
	for i := 0; i < 120; i++ {
		pxB := 3000 + float64(i)
		residual := 10.0
		if i%2 == 1 {
			residual = -10.0
		}
		feedPair(s, tsMs, pxB, 2*pxB+residual)
		tsMs += 60_000
	}

	p, ok := pm.Get("BTC/USDT:ETH/USDT")
	if !ok {
		t.Fatalf("交易对丢失")
	}
	if p.Status != model.PairActive {
		t.Fatalf("预热后交易对应已激活，实际: %s", p.Status)
	}
	if p.HasPosition() {
		t.Fatalf("预热期不应开仓")
	}

	// 尖峰：残差 +50，z ≈ 5 → 开空价差
	pxB := 3000.0 + 120
	feedPair(s, tsMs, pxB, 2*pxB+50)
	tsMs += 60_000

	if !p.HasPosition() {
		t.Fatalf("价差尖峰后应已开仓")
	}
	if p.Position.Type != model.SignalOpenShortSpread {
		t.Fatalf("应开空价差，实际: %s", p.Position.Type)
	}
	if len(exec.orders) < 2 {
		t.Fatalf("开仓应产生两腿订单，实际: %v", exec.orders)
	}

	// 回归：残差归零 → 平仓
	pxB = 3000.0 + 121
	feedPair(s, tsMs, pxB, 2*pxB)

	if p.HasPosition() {
		t.Fatalf("价差回归后应已平仓")
	}
	if len(trades) != 1 {
		t.Fatalf("应产生一笔完结交易，实际: %d", len(trades))
	}
	if p.Performance.TotalTrades != 1 {
		t.Fatalf("绩效应记录一笔交易，实际: %d", p.Performance.TotalTrades)
	}
}

// TestFinishLiquidatesPositions Finish 强制清算所有未平仓位
func TestFinishLiquidatesPositions(t *testing.T) {
	cfg := testEngineConfig("pairs_trading")
	s, st, pm, _ := newTestStrategy(cfg)
	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}

	st.AddPriceAt("BTC/USDT", 51000, 1)
	st.AddPriceAt("ETH/USDT", 3100, 1)
	pm.SetPosition("BTC/USDT:ETH/USDT", &model.Position{
		Type: model.SignalOpenLongSpread,
		LegA: model.PositionLeg{Symbol: "BTC/USDT", Side: model.LegLong, Amount: 0.1, EntryPx: 50000},
		LegB: model.PositionLeg{Symbol: "ETH/USDT", Side: model.LegShort, Amount: 1.5, EntryPx: 3000},
	})

	var trades []*model.ClosedTrade
	s.SetTradeHook(func(tr *model.ClosedTrade) { trades = append(trades, tr) })

	s.Finish()

	if s.Running() {
		t.Fatalf("Finish 后应停止运行")
	}
	p, _ := pm.Get("BTC/USDT:ETH/USDT")
	if p.HasPosition() {
		t.Fatalf("Finish 后不应有未平仓位")
	}
	if len(trades) != 1 || trades[0].Reason != "liquidation" {
		t.Fatalf("应产生一笔清算交易，实际: %+v", trades)
	}
	// PnL = (51000−50000)×0.1 − (3100−3000)×1.5 = 100 − 150 = −50
	if math.Abs(trades[0].Pnl-(-50)) > 1e-9 {
		t.Fatalf("清算 PnL 应为 -50，实际: %f", trades[0].Pnl)
	}

	// 停止后的行情事件为 no-op
	s.OnCandle(&model.Candle{Symbol: "BTC/USDT", Close: 52000, TsUnixMs: 2})
	if st.Len("BTC/USDT") != 1 {
		t.Fatalf("停止后不应再记录价格")
	}
}

// TestConsecutiveLossCooling 连续亏损触发冷却，冷却期仅抑制开仓
func TestConsecutiveLossCooling(t *testing.T) {
	cfg := testEngineConfig("pairs_trading")
	cfg.ConsecutiveLossLimit = 2
	s, _, pm, _ := newTestStrategy(cfg)
	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}

	p, _ := pm.Get("BTC/USDT:ETH/USDT")
	nowNs := int64(1_000_000_000_000)

	losingPosition := func() *model.Position {
		return &model.Position{
			Type: model.SignalOpenLongSpread,
			LegA: model.PositionLeg{Symbol: "BTC/USDT", Side: model.LegLong, Amount: 0.1, EntryPx: 50000},
			LegB: model.PositionLeg{Symbol: "ETH/USDT", Side: model.LegShort, Amount: 1.5, EntryPx: 3000},
		}
	}

	// 两笔亏损平仓（A 跌 B 涨）
	for i := 0; i < 2; i++ {
		pm.SetPosition(p.ID, losingPosition())
		s.closePosition(p, "stop_loss", 49000, 3100, nowNs)
	}

	if !s.Cooling(nowNs) {
		t.Fatalf("连续亏损达到上限后应进入冷却")
	}

	// 冷却期内开仓被抑制
	p.Status = model.PairActive
	p.Stats = model.PairStatistics{Alpha: 0, Beta: 16.5, SpreadMean: 0, SpreadStd: 100}
	sig := s.GenerateSignal(p, 50000, 3000, nowNs)
	if sig.Type != model.SignalOpenShortSpread {
		t.Fatalf("信号生成本身不受冷却影响，实际: %s", sig.Type)
	}
	s.openPosition(p, sig, 50000, 3000, nowNs)
	if p.HasPosition() {
		t.Fatalf("冷却期内不应开仓")
	}

	// 冷却期结束后恢复开仓
	afterNs := nowNs + int64(cfg.CoolingPeriodMs)*1_000_000 + 1
	if s.Cooling(afterNs) {
		t.Fatalf("冷却期应已结束")
	}
	s.openPosition(p, sig, 50000, 3000, afterNs)
	if !p.HasPosition() {
		t.Fatalf("冷却期结束后应恢复开仓")
	}
}

// TestWinResetsLossStreak 盈利平仓重置连续亏损计数
func TestWinResetsLossStreak(t *testing.T) {
	s, _, pm, _ := newTestStrategy(testEngineConfig("pairs_trading"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}
	p, _ := pm.Get("BTC/USDT:ETH/USDT")

	pm.SetPosition(p.ID, &model.Position{
		Type: model.SignalOpenLongSpread,
		LegA: model.PositionLeg{Symbol: "BTC/USDT", Side: model.LegLong, Amount: 0.1, EntryPx: 50000},
		LegB: model.PositionLeg{Symbol: "ETH/USDT", Side: model.LegShort, Amount: 1.5, EntryPx: 3000},
	})
	s.closePosition(p, "stop_loss", 49000, 3100, 1)
	if s.consecutiveLosses != 1 {
		t.Fatalf("亏损后计数应为 1，实际: %d", s.consecutiveLosses)
	}

	pm.SetPosition(p.ID, &model.Position{
		Type: model.SignalOpenLongSpread,
		LegA: model.PositionLeg{Symbol: "BTC/USDT", Side: model.LegLong, Amount: 0.1, EntryPx: 50000},
		LegB: model.PositionLeg{Symbol: "ETH/USDT", Side: model.LegShort, Amount: 1.5, EntryPx: 3000},
	})
	s.closePosition(p, "exit", 52000, 3000, 2)
	if s.consecutiveLosses != 0 {
		t.Fatalf("盈利后计数应归零，实际: %d", s.consecutiveLosses)
	}
}

// TestSecondLegFailureUnwindsFirst 第二腿失败时回撤第一腿，不留单腿敞口
func TestSecondLegFailureUnwindsFirst(t *testing.T) {
	s, _, pm, exec := newTestStrategy(testEngineConfig("pairs_trading"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}
	p, _ := pm.Get("BTC/USDT:ETH/USDT")
	p.Status = model.PairActive
	p.Stats = model.PairStatistics{Alpha: 0, Beta: 16.5, SpreadMean: 0, SpreadStd: 100}

	sig := s.GenerateSignal(p, 50000, 3000, 1)
	if sig.Type != model.SignalOpenShortSpread {
		t.Fatalf("前置条件失败: %s", sig.Type)
	}

	// 第一腿（卖 A）成功后，第二腿（买 B）失败
	exec.failNext = false
	s.exec = &secondLegFailExec{fakeExec: exec}
	s.openPosition(p, sig, 50000, 3000, 1)

	if p.HasPosition() {
		t.Fatalf("第二腿失败后不应留有仓位记录")
	}
	found := false
	for _, o := range exec.orders {
		if o == "close:BTC/USDT" {
			found = true
		}
	}
	if !found {
		t.Fatalf("应回撤第一腿，订单记录: %v", exec.orders)
	}
}

// secondLegFailExec 买入恒定失败的执行桩，用于模拟第二腿失败
type secondLegFailExec struct {
	*fakeExec
}

func (f *secondLegFailExec) Buy(symbol string, amount float64) error {
	return fmt.Errorf("模拟第二腿失败")
}

// TestRemovePairWithPosition 有持仓的交易对拒绝移除
func TestRemovePairWithPosition(t *testing.T) {
	s, _, pm, _ := newTestStrategy(testEngineConfig("pairs_trading"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}

	pm.SetPosition("BTC/USDT:ETH/USDT", &model.Position{
		Type: model.SignalOpenLongSpread,
		LegA: model.PositionLeg{Symbol: "BTC/USDT", Side: model.LegLong, Amount: 0.1, EntryPx: 50000},
		LegB: model.PositionLeg{Symbol: "ETH/USDT", Side: model.LegShort, Amount: 1.5, EntryPx: 3000},
	})

	if err := s.RemovePair("BTC/USDT:ETH/USDT"); err == nil {
		t.Fatalf("有持仓时应拒绝移除")
	}

	pm.SetPosition("BTC/USDT:ETH/USDT", nil)
	if err := s.RemovePair("BTC/USDT:ETH/USDT"); err != nil {
		t.Fatalf("无持仓时移除失败: %v", err)
	}
	if err := s.RemovePair("BTC/USDT:ETH/USDT"); err == nil {
		t.Fatalf("未知交易对应返回错误")
	}
}

// TestStatusReport 状态快照聚合字段
func TestStatusReport(t *testing.T) {
	s, _, pm, _ := newTestStrategy(testEngineConfig("pairs_trading"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}

	pm.RecordTradeResult("BTC/USDT:ETH/USDT", 120, true)
	pm.RecordTradeResult("BTC/USDT:ETH/USDT", -40, false)

	st := s.Status()
	if !st.Running {
		t.Fatalf("应为运行状态")
	}
	if st.PairCount != 1 {
		t.Fatalf("PairCount 应为 1，实际: %d", st.PairCount)
	}
	if math.Abs(st.TotalPnl-80) > 1e-9 {
		t.Fatalf("TotalPnl 应为 80，实际: %f", st.TotalPnl)
	}
	if math.Abs(st.WinRate-0.5) > 1e-9 {
		t.Fatalf("WinRate 应为 0.5，实际: %f", st.WinRate)
	}

	sums := s.PairsSummary()
	if len(sums) != 1 || sums[0].TotalTrades != 2 {
		t.Fatalf("交易对概要错误: %+v", sums)
	}
}
