// Package store 价格序列缓存测试
package store

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestStore_AddAndLatest 测试追加与最新价读取
func TestStore_AddAndLatest(t *testing.T) {
	s := New(100)

	if _, ok := s.LatestPrice("BTC/USDT"); ok {
		t.Error("空品种不应有最新价")
	}

	s.AddPriceAt("BTC/USDT", 50000, 1000)
	s.AddPriceAt("BTC/USDT", 50100, 2000)

	px, ok := s.LatestPrice("BTC/USDT")
	if !ok || px != 50100 {
		t.Errorf("LatestPrice = (%v, %v), want (50100, true)", px, ok)
	}
	if got := s.Len("BTC/USDT"); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}

	// 空品种名忽略
	s.AddPrice("", 1)
	if got := s.Len(""); got != 0 {
		t.Errorf("空品种名 Len = %d, want 0", got)
	}
}

// TestStore_FIFOEviction 测试容量上限与 FIFO 淘汰
func TestStore_FIFOEviction(t *testing.T) {
	s := New(5)
	for i := 0; i < 8; i++ {
		s.AddPriceAt("ETH/USDT", float64(100+i), int64(i))
	}

	if got := s.Len("ETH/USDT"); got != 5 {
		t.Errorf("淘汰后 Len = %d, want 5", got)
	}

	// 保留最近 5 个: 103..107
	prices := s.Prices("ETH/USDT", 0)
	expected := []float64{103, 104, 105, 106, 107}
	for i, want := range expected {
		if prices[i] != want {
			t.Errorf("prices[%d] = %v, want %v", i, prices[i], want)
		}
	}

	px, _ := s.LatestPrice("ETH/USDT")
	if px != 107 {
		t.Errorf("LatestPrice = %v, want 107", px)
	}
}

// TestStore_Prices 测试子序列读取边界
func TestStore_Prices(t *testing.T) {
	s := New(100)
	for i := 1; i <= 5; i++ {
		s.AddPriceAt("SOL/USDT", float64(i*10), int64(i))
	}

	// 取最近 3 个
	got := s.Prices("SOL/USDT", 3)
	if len(got) != 3 || got[0] != 30 || got[2] != 50 {
		t.Errorf("Prices(3) = %v, want [30 40 50]", got)
	}

	// n 超出存量返回全部
	if got := s.Prices("SOL/USDT", 99); len(got) != 5 {
		t.Errorf("Prices(99) 长度 = %d, want 5", len(got))
	}

	// 未知品种返回空切片
	if got := s.Prices("UNKNOWN", 10); len(got) != 0 {
		t.Errorf("未知品种 Prices = %v, want 空", got)
	}

	// 返回副本，外部修改不影响内部状态
	snapshot := s.Prices("SOL/USDT", 0)
	snapshot[0] = -1
	if again := s.Prices("SOL/USDT", 0); again[0] != 10 {
		t.Error("Prices 返回值应为副本")
	}
}

// TestStore_HasEnoughData 测试数据量判断
func TestStore_HasEnoughData(t *testing.T) {
	s := New(100)
	for i := 0; i < 3; i++ {
		s.AddPriceAt("BTC/USDT", 50000, int64(i))
	}

	if !s.HasEnoughData("BTC/USDT", 3) {
		t.Error("3 个观测应满足 minLength=3")
	}
	if s.HasEnoughData("BTC/USDT", 4) {
		t.Error("3 个观测不应满足 minLength=4")
	}
	if s.HasEnoughData("UNKNOWN", 1) {
		t.Error("未知品种不应满足任何 minLength")
	}
}

// TestStore_Returns 测试收益率序列
func TestStore_Returns(t *testing.T) {
	s := New(100)
	s.AddPriceAt("BTC/USDT", 100, 1)
	s.AddPriceAt("BTC/USDT", 110, 2)
	s.AddPriceAt("BTC/USDT", 121, 3)

	returns := s.Returns("BTC/USDT")
	if len(returns) != 2 {
		t.Fatalf("Returns 长度 = %d, want 2", len(returns))
	}
	for i, r := range returns {
		if math.Abs(r-0.1) > 1e-9 {
			t.Errorf("returns[%d] = %v, want 0.1", i, r)
		}
	}

	// 不足 2 个价格返回空
	s.AddPriceAt("ETH/USDT", 3000, 1)
	if got := s.Returns("ETH/USDT"); len(got) != 0 {
		t.Errorf("单价格 Returns = %v, want 空", got)
	}

	// 前值为 0 的点跳过
	s.AddPriceAt("ZERO", 0, 1)
	s.AddPriceAt("ZERO", 10, 2)
	s.AddPriceAt("ZERO", 11, 3)
	if got := s.Returns("ZERO"); len(got) != 1 || math.Abs(got[0]-0.1) > 1e-9 {
		t.Errorf("含零价 Returns = %v, want [0.1]", got)
	}
}

// TestStore_ClearAndSymbols 测试清理与品种列表
func TestStore_ClearAndSymbols(t *testing.T) {
	s := New(100)
	s.AddPriceAt("BTC/USDT", 1, 1)
	s.AddPriceAt("ETH/USDT", 2, 1)

	if got := len(s.Symbols()); got != 2 {
		t.Errorf("Symbols 数量 = %d, want 2", got)
	}

	s.Clear("BTC/USDT")
	if s.Len("BTC/USDT") != 0 {
		t.Error("Clear 后存量应为 0")
	}
	if s.Len("ETH/USDT") != 1 {
		t.Error("Clear 不应影响其他品种")
	}

	s.ClearAll()
	if got := len(s.Symbols()); got != 0 {
		t.Errorf("ClearAll 后 Symbols 数量 = %d, want 0", got)
	}
}

// TestStore_DefaultCapacity 测试非法容量回退到默认值
func TestStore_DefaultCapacity(t *testing.T) {
	s := New(0)
	for i := 0; i < DefaultMaxLength+10; i++ {
		s.AddPriceAt("BTC/USDT", float64(i), int64(i))
	}
	if got := s.Len("BTC/USDT"); got != DefaultMaxLength {
		t.Errorf("默认容量下 Len = %d, want %d", got, DefaultMaxLength)
	}
}

// **Feature: statarb-engine, Property 7: Bounded Series Invariant**

// TestStore_BoundedInvariant 属性: 任意追加序列后，存量不超过容量且最新价等于最后追加值
func TestStore_BoundedInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("存量有界且最新价正确", prop.ForAll(
		func(maxLength int, prices []float64) bool {
			s := New(maxLength)
			for i, px := range prices {
				s.AddPriceAt("X", px, int64(i))
			}

			if s.Len("X") > maxLength {
				return false
			}
			if len(prices) == 0 {
				_, ok := s.LatestPrice("X")
				return !ok
			}
			latest, ok := s.LatestPrice("X")
			return ok && latest == prices[len(prices)-1]
		},
		gen.IntRange(1, 50),
		gen.SliceOf(gen.Float64Range(1, 100000)),
	))

	properties.TestingRun(t)
}
