// Package paper 实现影子/模拟成交的资金与持仓记账。
// 重要：仅用于研究/验证，严禁真实下单。
package paper

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"statarb-engine/internal/util/timeutil"
)

// QuoteFunc 行情查询回调
// 返回品种最新价格；无行情时 ok 为 false。
type QuoteFunc func(symbol string) (price float64, ok bool)

// Fill 一笔影子成交的回执
// ID 为引擎内唯一的成交标识，用于落盘记录与事后对账。
type Fill struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Amount       float64 `json:"amount"`
	Price        float64 `json:"price"`
	CapitalAfter float64 `json:"capital_after"`
	TsNs         int64   `json:"ts_ns"`
}

// FillHook 成交回执回调，在每笔成交记账完成后同步调用
type FillHook func(Fill)

// holding 单品种持仓
type holding struct {
	// amount 带符号数量（空头为负）
	amount float64
	// avgEntryPx 加权平均入场价
	avgEntryPx float64
}

// Account 影子成交账户
// 市价单按最新价 ± 滑点立即成交；允许资金为负（保证金口径）。
type Account struct {
	// capital 可用资金
	capital float64
	// slippageBps 成交滑点（基点）
	slippageBps float64
	// quote 行情查询回调
	quote QuoteFunc
	// holdings 按品种的持仓
	holdings map[string]*holding
	// fillCount 累计成交笔数
	fillCount int64
	// lastFill 最近一笔成交回执
	lastFill *Fill
	// onFill 成交回执回调（可选）
	onFill FillHook
	// logger 日志记录器
	logger *zap.Logger
}

// NewAccount 创建影子成交账户
// 参数 initialCapital: 初始资金
// 参数 slippageBps: 成交滑点（基点）
// 参数 quote: 行情查询回调
// 参数 logger: 日志记录器
func NewAccount(initialCapital, slippageBps float64, quote QuoteFunc, logger *zap.Logger) *Account {
	return &Account{
		capital:     initialCapital,
		slippageBps: slippageBps,
		quote:       quote,
		holdings:    make(map[string]*holding),
		logger:      logger.Named("paper"),
	}
}

// Buy 按数量市价买入
// 成交价 = 最新价 × (1 + 滑点)
func (a *Account) Buy(symbol string, amount float64) error {
	return a.fill(symbol, amount)
}

// Sell 按数量市价卖出
// 成交价 = 最新价 × (1 - 滑点)；超出持仓部分形成空头
func (a *Account) Sell(symbol string, amount float64) error {
	return a.fill(symbol, -amount)
}

// BuyPercent 按可用资金比例市价买入
// 参数 percent: 资金比例（0-1）
func (a *Account) BuyPercent(symbol string, percent float64) error {
	if percent <= 0 || percent > 1 {
		return fmt.Errorf("资金比例必须在 (0,1] 之间，当前值: %f", percent)
	}

	px, ok := a.quote(symbol)
	if !ok || px <= 0 {
		return fmt.Errorf("品种 %s 无可用行情", symbol)
	}
	return a.fill(symbol, a.capital*percent/px)
}

// ClosePosition 平掉指定品种的全部持仓
// 无持仓时为 no-op
func (a *Account) ClosePosition(symbol string) error {
	h := a.holdings[symbol]
	if h == nil || h.amount == 0 {
		return nil
	}
	return a.fill(symbol, -h.amount)
}

// fill 执行一笔带符号数量的市价成交
// 正数量买入，负数量卖出
func (a *Account) fill(symbol string, signedAmount float64) error {
	if symbol == "" {
		return fmt.Errorf("品种不能为空")
	}
	if signedAmount == 0 {
		return nil
	}

	px, ok := a.quote(symbol)
	if !ok || px <= 0 {
		return fmt.Errorf("品种 %s 无可用行情", symbol)
	}

	// 滑点始终对成交方不利
	slip := a.slippageBps / 10000
	fillPx := px * (1 + slip)
	if signedAmount < 0 {
		fillPx = px * (1 - slip)
	}

	h := a.holdings[symbol]
	if h == nil {
		h = &holding{}
		a.holdings[symbol] = h
	}

	// 同向加仓时更新加权平均入场价；反向或平仓保留原入场价口径
	newAmount := h.amount + signedAmount
	if (h.amount >= 0) == (signedAmount > 0) && newAmount != 0 {
		h.avgEntryPx = (h.avgEntryPx*abs(h.amount) + fillPx*abs(signedAmount)) / abs(newAmount)
	}
	h.amount = newAmount
	if h.amount == 0 {
		h.avgEntryPx = 0
	}

	a.capital -= fillPx * signedAmount
	a.fillCount++

	f := Fill{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		Amount:       signedAmount,
		Price:        fillPx,
		CapitalAfter: a.capital,
		TsNs:         timeutil.NowNano(),
	}
	a.lastFill = &f
	if a.onFill != nil {
		a.onFill(f)
	}

	a.logger.Debug("影子成交",
		zap.String("fill_id", f.ID),
		zap.String("symbol", symbol),
		zap.Float64("amount", signedAmount),
		zap.Float64("fill_px", fillPx),
		zap.Float64("capital", a.capital),
	)
	return nil
}

// Position 获取品种带符号持仓数量（空头为负）
func (a *Account) Position(symbol string) float64 {
	h := a.holdings[symbol]
	if h == nil {
		return 0
	}
	return h.amount
}

// Capital 获取当前可用资金
func (a *Account) Capital() float64 {
	return a.capital
}

// Equity 获取当前权益（资金 + 持仓按最新价的市值）
// 无行情的品种按入场价估值，避免权益跳变。
func (a *Account) Equity() float64 {
	equity := a.capital
	for symbol, h := range a.holdings {
		if h.amount == 0 {
			continue
		}
		px, ok := a.quote(symbol)
		if !ok || px <= 0 {
			px = h.avgEntryPx
		}
		equity += h.amount * px
	}
	return equity
}

// FillCount 获取累计成交笔数
func (a *Account) FillCount() int64 {
	return a.fillCount
}

// LastFill 获取最近一笔成交回执
// 尚无成交时 ok 为 false。
func (a *Account) LastFill() (Fill, bool) {
	if a.lastFill == nil {
		return Fill{}, false
	}
	return *a.lastFill, true
}

// SetFillHook 设置成交回执回调
// 回调在记账 goroutine 中同步执行，不应阻塞。
func (a *Account) SetFillHook(hook FillHook) {
	a.onFill = hook
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
