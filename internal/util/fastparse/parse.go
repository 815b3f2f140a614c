// Package fastparse 提供行情消息字段的字符串解析函数。
// Binance miniTicker 的价格与成交量以字符串下发，热路径上
// 直接走 strconv，避免 fmt 反射开销。
package fastparse

import (
	"strconv"
)

// ParseFloat 解析浮点数字符串
// 参数 s: 待解析的字符串，如 "50123.45"
// 返回: 解析后的浮点数和可能的错误
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// ParseInt 解析整数字符串
// 用于解析毫秒时间戳等整数字段
func ParseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// MustParseFloat 解析浮点数，失败时返回 0
// 用于已经过格式校验的字段，简化错误处理
func MustParseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatFloat 格式化浮点数为字符串
// 参数 prec: 小数位数，-1 表示最短表示
func FormatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}
