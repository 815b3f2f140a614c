// Package execution 定义交易执行协作方的接口边界。
// 核心策略只通过该接口表达交易意图并读取资金/持仓状态，
// 不直接管理订单簿或交易所连接。
package execution

// Client 交易执行接口
// 所有方法在聚合器 goroutine 中同步调用，实现方不应长时间阻塞。
type Client interface {
	// Buy 按数量市价买入
	Buy(symbol string, amount float64) error
	// Sell 按数量市价卖出（超出持仓部分形成空头）
	Sell(symbol string, amount float64) error
	// BuyPercent 按可用资金比例市价买入
	// 参数 percent: 资金比例（0-1）
	BuyPercent(symbol string, percent float64) error
	// ClosePosition 平掉指定品种的全部持仓
	ClosePosition(symbol string) error
	// Position 获取品种带符号持仓数量（空头为负）
	Position(symbol string) float64
	// Capital 获取当前可用资金
	Capital() float64
	// Equity 获取当前权益（资金 + 持仓市值）
	Equity() float64
}
