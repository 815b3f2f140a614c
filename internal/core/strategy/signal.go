package strategy

import (
	"math"

	"statarb-engine/internal/core/model"
	"statarb-engine/internal/stats/spreadcalc"
	"statarb-engine/internal/stats/statcalc"
)

// GenerateSignal 按套利类型生成交易信号
// 输入为两腿最新价格与交易对当前统计快照，无副作用，可独立测试。
// 无信号时返回 Type 为 SignalNone 的信号对象。
func (s *Strategy) GenerateSignal(p *model.Pair, pxA, pxB float64, nowNs int64) *model.Signal {
	switch s.arbType {
	case model.ArbCrossExchange:
		return s.crossExchangeSignal(p, pxA, pxB, nowNs)
	case model.ArbPerpetualSpot:
		return s.basisSignal(p, pxA, pxB, nowNs)
	default:
		// cointegration / pairs_trading / triangular 共用 z-score 路径
		return s.zScoreSignal(p, pxA, pxB, nowNs)
	}
}

// zScoreSignal 残差价差 z-score 信号
// spread = A − (α + β×B)，z = (spread − mean) / std。
// 持仓状态下止损判定优先于回归出场；无持仓时 |z| 达到入场阈值才开仓。
// 协整类型额外要求最近一次平稳性检验通过。
func (s *Strategy) zScoreSignal(p *model.Pair, pxA, pxB float64, nowNs int64) *model.Signal {
	st := p.Stats
	spread := spreadcalc.Residual(pxA, pxB, st.Alpha, st.Beta)
	z := statcalc.ZScore(spread, st.SpreadMean, st.SpreadStd)

	sig := &model.Signal{
		Type:         model.SignalNone,
		PairID:       p.ID,
		Spread:       spread,
		ZScore:       z,
		DetectedAtNs: nowNs,
	}

	if p.HasPosition() {
		if math.Abs(z) >= s.cfg.StopLossZScore {
			sig.Type = model.SignalCloseSpread
			sig.Reason = "stop_loss"
			return sig
		}
		if math.Abs(z) <= s.cfg.ExitZScore {
			sig.Type = model.SignalCloseSpread
			sig.Reason = "exit"
			return sig
		}
		return sig
	}

	if s.arbType == model.ArbCointegration {
		if st.Cointegration == nil || !st.Cointegration.IsStationary {
			return sig
		}
	}

	if z >= s.cfg.EntryZScore {
		// 价差显著高于均值：A 相对高估，做空 A / 做多 B
		sig.Type = model.SignalOpenShortSpread
		sig.Reason = "entry"
	} else if z <= -s.cfg.EntryZScore {
		sig.Type = model.SignalOpenLongSpread
		sig.Reason = "entry"
	}
	return sig
}

// crossExchangeSignal 跨交易所百分比价差信号
// net = 价差 − 2×(交易成本 + 滑点)，覆盖两腿往返成本。
// 持仓状态下当价差收敛到不再覆盖往返成本时平仓。
func (s *Strategy) crossExchangeSignal(p *model.Pair, pxA, pxB float64, nowNs int64) *model.Signal {
	spread := spreadcalc.Percentage(pxA, pxB)
	roundTripCost := 2*s.cfg.TradingCost + 2*s.cfg.SlippageEstimate
	net := spread - roundTripCost

	sig := &model.Signal{
		Type:         model.SignalNone,
		PairID:       p.ID,
		Spread:       spread,
		DetectedAtNs: nowNs,
	}

	if p.HasPosition() {
		if math.Abs(spread)-roundTripCost <= 0 {
			sig.Type = model.SignalCloseSpread
			sig.Reason = "exit"
		}
		return sig
	}

	if net > s.cfg.SpreadEntryThreshold {
		sig.Type = model.SignalOpenShortSpread
		sig.Reason = "entry"
	} else if net < -s.cfg.SpreadEntryThreshold {
		sig.Type = model.SignalOpenLongSpread
		sig.Reason = "entry"
	}
	return sig
}

// basisSignal 永续/现货年化基差信号
// A 腿约定为衍生品、B 腿为现货。年化基差超过入场阈值时做空衍生品/
// 做多现货（收正基差），低于负阈值时反向；持仓状态下基差回落到
// 出场阈值以内平仓。
func (s *Strategy) basisSignal(p *model.Pair, pxA, pxB float64, nowNs int64) *model.Signal {
	basis := spreadcalc.Basis(pxA, pxB)
	annualized := spreadcalc.AnnualizedBasis(basis, s.cfg.BasisPeriodDays)

	sig := &model.Signal{
		Type:         model.SignalNone,
		PairID:       p.ID,
		Spread:       annualized,
		DetectedAtNs: nowNs,
	}

	if p.HasPosition() {
		if math.Abs(annualized) <= s.cfg.BasisExitThreshold {
			sig.Type = model.SignalCloseSpread
			sig.Reason = "basis_exit"
		}
		return sig
	}

	if annualized > s.cfg.BasisEntryThreshold {
		sig.Type = model.SignalOpenShortSpread
		sig.Reason = "basis_entry"
	} else if annualized < -s.cfg.BasisEntryThreshold {
		sig.Type = model.SignalOpenLongSpread
		sig.Reason = "basis_entry"
	}
	return sig
}
