// Package metrics 暴露引擎运行指标（Prometheus 格式）。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CandlesTotal 按品种累计接收的蜡烛数
	CandlesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "statarb_candles_total", Help: "累计接收的收盘价事件数"},
		[]string{"symbol"},
	)
	// SignalsTotal 按信号类型累计生成的信号数
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "statarb_signals_total", Help: "累计生成的交易信号数"},
		[]string{"type"},
	)
	// TradesTotal 按平仓原因累计完结交易数
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "statarb_trades_total", Help: "累计完结交易笔数"},
		[]string{"reason"},
	)
	// OpenPositions 当前未平仓交易对数
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "statarb_open_positions", Help: "当前未平仓交易对数"},
	)
	// ActivePairs 当前激活交易对数
	ActivePairs = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "statarb_active_pairs", Help: "当前激活交易对数"},
	)
	// RealizedPnl 累计已实现盈亏
	RealizedPnl = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "statarb_realized_pnl", Help: "累计已实现盈亏（计价货币）"},
	)
	// Equity 当前账户权益
	Equity = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "statarb_equity", Help: "当前账户权益（资金 + 持仓市值）"},
	)
)

func init() {
	prometheus.MustRegister(
		CandlesTotal, SignalsTotal, TradesTotal,
		OpenPositions, ActivePairs, RealizedPnl, Equity,
	)
}

// Serve 启动 /metrics HTTP 服务
// 返回 server 以便关停时调用 Close。
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
