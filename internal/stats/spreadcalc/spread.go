// Package spreadcalc 提供价差计算的无状态纯函数。
// 将两个品种的价格（以及回归关系）转换为单一价差标量；
// 除零等数值边界一律返回 0 而非报错。
package spreadcalc

import (
	"math"
)

// daysPerYear 年化系数（线性年化，不复利）
const daysPerYear = 365.0

// Ratio 比率价差: a / b
// b 为 0 时返回 0
func Ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Log 对数价差: ln(a) - beta·ln(b)
// 任一价格非正时返回 0
func Log(a, b, beta float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	return math.Log(a) - beta*math.Log(b)
}

// Residual 残差价差: a - (alpha + beta·b)
// 协整配对交易使用的 OLS 残差口径
func Residual(a, b, alpha, beta float64) float64 {
	return a - (alpha + beta*b)
}

// Percentage 百分比价差: (a - b) / b
// b 为 0 时返回 0
func Percentage(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b
}

// Basis 基差: (衍生品价 - 现货价) / 现货价
// 现货价为 0 时返回 0
func Basis(derivativePx, spotPx float64) float64 {
	if spotPx == 0 {
		return 0
	}
	return (derivativePx - spotPx) / spotPx
}

// AnnualizedBasis 线性年化基差: periodBasis × (365 / periodDays)
// 周期天数非正时返回 0
func AnnualizedBasis(periodBasis, periodDays float64) float64 {
	if periodDays <= 0 {
		return 0
	}
	return periodBasis * (daysPerYear / periodDays)
}
