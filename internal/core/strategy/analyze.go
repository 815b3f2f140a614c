package strategy

import (
	"math"

	"go.uber.org/zap"

	"statarb-engine/internal/core/model"
	"statarb-engine/internal/stats/statcalc"
)

// adfSignificance 平稳性检验显著性水平
const adfSignificance = 0.05

// brokenAfterRuns 挂起状态下连续多少次重估不达标后判定关系破裂
const brokenAfterRuns = 3

// analyzePair 重估单个交易对的统计关系并推进生命周期状态
// 在协整检验窗口上做 OLS（A = α + β×B），残差序列上计算均值/标准差、
// 平稳性、半衰期与 Hurst 指数；按相关性与半衰期门限决定激活或挂起，
// 挂起后连续不达标则判定关系破裂。
func (s *Strategy) analyzePair(p *model.Pair) {
	pricesA := s.store.Prices(p.AssetA, s.cfg.CointegrationTestPeriod)
	pricesB := s.store.Prices(p.AssetB, s.cfg.CointegrationTestPeriod)
	if len(pricesA) < s.cfg.LookbackPeriod || len(pricesB) < s.cfg.LookbackPeriod {
		return
	}

	corr := statcalc.Correlation(pricesA, pricesB)
	fit := statcalc.OLS(pricesB, pricesA)
	residuals := fit.Residuals

	// 价差的均值/标准差取最近的回看窗口，信号对近况更敏感
	window := residuals
	if len(window) > s.cfg.LookbackPeriod {
		window = window[len(window)-s.cfg.LookbackPeriod:]
	}

	adf := statcalc.ADFTest(residuals, adfSignificance)
	stats := model.PairStatistics{
		Correlation: corr,
		Alpha:       fit.Alpha,
		Beta:        fit.Beta,
		SpreadMean:  statcalc.Mean(window),
		SpreadStd:   statcalc.Std(window),
		HalfLife:    statcalc.HalfLife(residuals),
		Hurst:       statcalc.HurstExponent(residuals),
		Cointegration: &model.CointegrationResult{
			IsStationary:  adf.IsStationary,
			TestStat:      adf.TestStat,
			CriticalValue: adf.CriticalValue,
			PValue:        adf.PValue,
		},
	}
	s.pairs.UpdateStats(p.ID, stats)

	eligible := s.pairEligible(stats)
	switch {
	case eligible:
		s.ineligibleRuns[p.ID] = 0
		if p.Status != model.PairActive && p.Status != model.PairBroken {
			if s.pairs.Activate(p.ID) {
				s.logger.Info("交易对通过统计验证，已激活",
					zap.String("pair_id", p.ID),
					zap.Float64("correlation", stats.Correlation),
					zap.Float64("beta", stats.Beta),
					zap.Float64("half_life", stats.HalfLife),
					zap.Float64("hurst", stats.Hurst))
			}
		}
	case p.Status == model.PairActive:
		s.pairs.Deactivate(p.ID)
		s.ineligibleRuns[p.ID] = 1
		s.logger.Info("统计关系失效，交易对已挂起",
			zap.String("pair_id", p.ID),
			zap.Float64("correlation", stats.Correlation),
			zap.Float64("half_life", stats.HalfLife))
	case p.Status == model.PairSuspended:
		// 挂起后持续不达标视为关系破裂，不再参与激活
		s.ineligibleRuns[p.ID]++
		if s.ineligibleRuns[p.ID] >= brokenAfterRuns && p.Position == nil {
			if s.pairs.MarkBroken(p.ID) {
				s.logger.Warn("统计关系持续失效，交易对判定破裂",
					zap.String("pair_id", p.ID),
					zap.Int("ineligible_runs", s.ineligibleRuns[p.ID]),
					zap.Float64("correlation", stats.Correlation))
			}
		}
	}
}

// pairEligible 判断统计快照是否满足交易门限
// 相关性 ≥ minCorrelation，半衰期在 [minHalfLife, maxHalfLife] 区间；
// 协整类型额外要求残差平稳。
func (s *Strategy) pairEligible(stats model.PairStatistics) bool {
	if stats.Correlation < s.cfg.MinCorrelation {
		return false
	}
	if math.IsInf(stats.HalfLife, 1) ||
		stats.HalfLife < s.cfg.MinHalfLife ||
		stats.HalfLife > s.cfg.MaxHalfLife {
		return false
	}
	if s.arbType == model.ArbCointegration {
		if stats.Cointegration == nil || !stats.Cointegration.IsStationary {
			return false
		}
	}
	return true
}

// ReanalyzeAllPairs 重估所有候选交易对
// 逐对调用 analyzePair，数据不足的交易对保持原状态。
func (s *Strategy) ReanalyzeAllPairs() {
	for _, p := range s.pairs.All() {
		s.analyzePair(p)
	}
}
