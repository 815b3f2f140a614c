// Package store 维护所有品种的有界滚动价格序列。
// 使用单写者模式避免锁和竞态条件。
package store

import (
	"statarb-engine/internal/util/timeutil"
)

// DefaultMaxLength 单品种序列默认容量
const DefaultMaxLength = 500

// PricePoint 单个价格观测
type PricePoint struct {
	// Price 价格
	Price float64
	// TsUnixNs 观测时间（纳秒时间戳）
	// 按插入顺序非降，不与机器时钟漂移做校验
	TsUnixNs int64
}

// Store 价格序列缓存（单写者）
// 注意：本结构体默认由聚合器单 goroutine 写入；若要跨 goroutine 读，请通过消息或拷贝传递快照。
type Store struct {
	// maxLength 单品种序列容量，超出后 FIFO 淘汰最旧观测
	maxLength int
	// series 按品种缓存的价格序列
	series map[string][]PricePoint
}

// New 创建价格序列缓存
// 参数 maxLength: 单品种容量；非正值使用默认容量 500
func New(maxLength int) *Store {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Store{
		maxLength: maxLength,
		series:    make(map[string][]PricePoint),
	}
}

// AddPrice 追加一个价格观测，时间戳取当前时间
func (s *Store) AddPrice(symbol string, price float64) {
	s.AddPriceAt(symbol, price, timeutil.NowNano())
}

// AddPriceAt 追加一个带时间戳的价格观测
// 超出容量时淘汰最旧观测（FIFO）
func (s *Store) AddPriceAt(symbol string, price float64, tsUnixNs int64) {
	if symbol == "" {
		return
	}

	seq := append(s.series[symbol], PricePoint{Price: price, TsUnixNs: tsUnixNs})
	if len(seq) > s.maxLength {
		seq = seq[len(seq)-s.maxLength:]
	}
	s.series[symbol] = seq
}

// Prices 获取最近 n 个价格
// n <= 0 或超出存量时返回全部；未知品种返回空切片。
// 返回副本，避免外部修改内部状态。
func (s *Store) Prices(symbol string, n int) []float64 {
	seq := s.series[symbol]
	if n <= 0 || n > len(seq) {
		n = len(seq)
	}

	result := make([]float64, n)
	offset := len(seq) - n
	for i := 0; i < n; i++ {
		result[i] = seq[offset+i].Price
	}
	return result
}

// LatestPrice 获取最新价格
// 未知品种或空序列返回 (0, false)
func (s *Store) LatestPrice(symbol string) (float64, bool) {
	seq := s.series[symbol]
	if len(seq) == 0 {
		return 0, false
	}
	return seq[len(seq)-1].Price, true
}

// Len 获取品种当前存量
func (s *Store) Len(symbol string) int {
	return len(s.series[symbol])
}

// HasEnoughData 判断品种存量是否达到 minLength
func (s *Store) HasEnoughData(symbol string, minLength int) bool {
	return len(s.series[symbol]) >= minLength
}

// Returns 计算简单周期收益率序列
// returns[i] = (p[i+1] - p[i]) / p[i]，N 个价格产出 N-1 个收益；
// 不足 2 个价格返回空切片；前值为 0 的点跳过以避免除零。
func (s *Store) Returns(symbol string) []float64 {
	seq := s.series[symbol]
	if len(seq) < 2 {
		return []float64{}
	}

	result := make([]float64, 0, len(seq)-1)
	for i := 1; i < len(seq); i++ {
		prev := seq[i-1].Price
		if prev == 0 {
			continue
		}
		result = append(result, (seq[i].Price-prev)/prev)
	}
	return result
}

// Clear 清空单个品种的序列
func (s *Store) Clear(symbol string) {
	delete(s.series, symbol)
}

// ClearAll 清空所有品种
func (s *Store) ClearAll() {
	s.series = make(map[string][]PricePoint)
}

// Symbols 列出所有有数据的品种
func (s *Store) Symbols() []string {
	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	return names
}
