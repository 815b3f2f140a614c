// Package statcalc 提供统计套利所需的无状态数值计算函数。
// 所有函数为纯函数，输入序列不会被修改；数值边界一律返回中性值而非报错。
// 标准差统一采用总体口径（除以 N），与 z-score、半衰期计算保持一致。
package statcalc

import (
	"math"
)

// epsilon 数值下限，低于该值的分母视为 0
const epsilon = 1e-10

// adfMinLen ADF 检验所需的最小序列长度
// 低于该长度直接短路为"非平稳"，不做回归
const adfMinLen = 20

// hurstMinLen Hurst 指数估计所需的最小序列长度
// 低于该长度返回 0.5（随机游走中性值）
const hurstMinLen = 100

// halfLifeMinLen 半衰期估计所需的最小序列长度
const halfLifeMinLen = 3

// Mean 计算算术均值
// 空序列返回 0
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

// Variance 计算总体方差（除以 N）
// 空序列返回 0
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	mean := Mean(data)
	var variance float64
	for _, v := range data {
		diff := v - mean
		variance += diff * diff
	}
	return variance / float64(len(data))
}

// Std 计算总体标准差（除以 N）
// 空序列或单元素序列返回 0
func Std(data []float64) float64 {
	return math.Sqrt(Variance(data))
}

// ZScore 计算 z-score
// z = (x - μ) / σ；σ 接近 0 时返回 0，避免除零
func ZScore(value, mean, std float64) float64 {
	if std < epsilon {
		return 0
	}
	return (value - mean) / std
}

// Correlation 计算 Pearson 相关系数
// 两序列长度不一致时，按较短长度对齐到各自的尾部（最新数据）；
// 对齐后不足 2 个点返回 0。
func Correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}

	// 尾部对齐：保留各自最近 n 个点
	a = a[len(a)-n:]
	b = b[len(b)-n:]

	meanA := Mean(a)
	meanB := Mean(b)

	var numerator, varA, varB float64
	for i := 0; i < n; i++ {
		diffA := a[i] - meanA
		diffB := b[i] - meanB
		numerator += diffA * diffB
		varA += diffA * diffA
		varB += diffB * diffB
	}

	denominator := math.Sqrt(varA * varB)
	if denominator < epsilon {
		return 0
	}
	return numerator / denominator
}

// OLSResult 一元最小二乘回归结果
type OLSResult struct {
	// Alpha 截距
	Alpha float64
	// Beta 斜率
	Beta float64
	// Residuals 残差序列: residuals[i] = y[i] - (alpha + beta*x[i])
	Residuals []float64
}

// OLS 一元最小二乘回归 y = alpha + beta*x
// 两序列长度不一致时按较短长度尾部对齐；
// x 方差接近 0 时 beta 为 0、alpha 为 y 的均值。
func OLS(x, y []float64) OLSResult {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n == 0 {
		return OLSResult{Residuals: []float64{}}
	}
	x = x[len(x)-n:]
	y = y[len(y)-n:]

	meanX := Mean(x)
	meanY := Mean(y)

	var numerator, denominator float64
	for i := 0; i < n; i++ {
		diffX := x[i] - meanX
		numerator += diffX * (y[i] - meanY)
		denominator += diffX * diffX
	}

	var alpha, beta float64
	if denominator < epsilon {
		beta = 0
		alpha = meanY
	} else {
		beta = numerator / denominator
		alpha = meanY - beta*meanX
	}

	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		residuals[i] = y[i] - (alpha + beta*x[i])
	}

	return OLSResult{Alpha: alpha, Beta: beta, Residuals: residuals}
}

// ADFResult ADF 平稳性检验结果
type ADFResult struct {
	// IsStationary 序列是否平稳
	IsStationary bool
	// TestStat 检验统计量（γ 的 t 统计量）
	TestStat float64
	// CriticalValue 所选显著性水平下的临界值
	CriticalValue float64
	// PValue 近似 p 值（按临界值表线性插值）
	PValue float64
}

// adfCriticalValues 含截距项的 DF 检验大样本临界值表
// 来源: Dickey-Fuller 分布标准表（n→∞）
var adfCriticalValues = map[float64]float64{
	0.01: -3.43,
	0.05: -2.86,
	0.10: -2.57,
}

// ADFTest 对序列做 Dickey-Fuller 平稳性检验
// 回归方程: Δy_t = c + γ·y_{t-1} + ε_t，检验统计量为 γ 的 t 值。
// 参数 significance: 显著性水平（0.01/0.05/0.10，其他值按 0.05 处理）
// 序列短于最小可用长度时短路为非平稳（p=1），不做回归。
func ADFTest(series []float64, significance float64) ADFResult {
	criticalValue, ok := adfCriticalValues[significance]
	if !ok {
		criticalValue = adfCriticalValues[0.05]
	}

	if len(series) < adfMinLen {
		return ADFResult{
			IsStationary:  false,
			TestStat:      0,
			CriticalValue: criticalValue,
			PValue:        1,
		}
	}

	// 构造 Δy_t 与 y_{t-1}
	n := len(series)
	dy := make([]float64, n-1)
	lag := make([]float64, n-1)
	for i := 1; i < n; i++ {
		dy[i-1] = series[i] - series[i-1]
		lag[i-1] = series[i-1]
	}

	fit := OLS(lag, dy)
	gamma := fit.Beta

	// γ 的标准误: SE = sqrt(s² / Σ(x-x̄)²)，s² = SSR/(m-2)
	m := len(lag)
	var ssr, sxx float64
	meanLag := Mean(lag)
	for i := 0; i < m; i++ {
		ssr += fit.Residuals[i] * fit.Residuals[i]
		diff := lag[i] - meanLag
		sxx += diff * diff
	}
	if m <= 2 || ssr < epsilon || sxx < epsilon {
		return ADFResult{
			IsStationary:  false,
			TestStat:      0,
			CriticalValue: criticalValue,
			PValue:        1,
		}
	}
	se := math.Sqrt(ssr / float64(m-2) / sxx)
	testStat := gamma / se

	return ADFResult{
		IsStationary:  testStat < criticalValue,
		TestStat:      testStat,
		CriticalValue: criticalValue,
		PValue:        adfPValue(testStat),
	}
}

// adfPValue 按标准临界值表对检验统计量做粗粒度线性插值
// 仅用于展示和阈值判断，不是精确的 MacKinnon p 值。
func adfPValue(testStat float64) float64 {
	cv1, cv5, cv10 := adfCriticalValues[0.01], adfCriticalValues[0.05], adfCriticalValues[0.10]

	switch {
	case testStat <= cv1:
		return 0.005
	case testStat <= cv5:
		// 在 [cv1, cv5] 间从 0.01 插值到 0.05
		return 0.01 + (testStat-cv1)/(cv5-cv1)*0.04
	case testStat <= cv10:
		// 在 [cv5, cv10] 间从 0.05 插值到 0.10
		return 0.05 + (testStat-cv5)/(cv10-cv5)*0.05
	case testStat <= 0:
		// 在 [cv10, 0] 间从 0.10 插值到 0.90
		return 0.10 + (testStat-cv10)/(0-cv10)*0.80
	default:
		return 1
	}
}

// HalfLife 估计均值回归半衰期（OU 过程）
// 回归 Δy_t = c + λ·y_{t-1} + ε_t，半衰期 = -ln(2)/λ。
// 序列过短或 λ >= 0（无均值回归）时返回 +Inf。
func HalfLife(series []float64) float64 {
	if len(series) < halfLifeMinLen {
		return math.Inf(1)
	}

	n := len(series)
	dy := make([]float64, n-1)
	lag := make([]float64, n-1)
	for i := 1; i < n; i++ {
		dy[i-1] = series[i] - series[i-1]
		lag[i-1] = series[i-1]
	}

	fit := OLS(lag, dy)
	lambda := fit.Beta

	if lambda >= 0 {
		return math.Inf(1)
	}

	halfLife := -math.Ln2 / lambda
	if halfLife < 0 || math.IsNaN(halfLife) {
		return math.Inf(1)
	}
	return halfLife
}

// HurstExponent 估计 Hurst 指数
// 方差尺度法：对滞后 τ 计算差分序列标准差，回归 log(std) ~ log(τ)，斜率即 H。
// 预期范围 [0,1]，~0.5 为随机游走；序列过短时返回 0.5 作为中性值。
func HurstExponent(series []float64) float64 {
	if len(series) < hurstMinLen {
		return 0.5
	}

	maxLag := 20
	if maxLag > len(series)/2 {
		maxLag = len(series) / 2
	}

	logLags := make([]float64, 0, maxLag-1)
	logStds := make([]float64, 0, maxLag-1)
	for lag := 2; lag <= maxLag; lag++ {
		diffs := make([]float64, len(series)-lag)
		for i := lag; i < len(series); i++ {
			diffs[i-lag] = series[i] - series[i-lag]
		}
		std := Std(diffs)
		if std < epsilon {
			continue
		}
		logLags = append(logLags, math.Log(float64(lag)))
		logStds = append(logStds, math.Log(std))
	}

	// 常数序列等退化情况无法回归
	if len(logLags) < 2 {
		return 0.5
	}

	fit := OLS(logLags, logStds)
	h := fit.Beta

	// 数值噪声导致的越界裁剪到合法范围
	if h < 0 {
		return 0
	}
	if h > 1 {
		return 1
	}
	return h
}
