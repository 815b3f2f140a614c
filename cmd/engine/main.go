// Package main 是统计套利引擎的入口点。
// 引擎持续消费收盘价事件，估计交易对之间的统计关系（相关性、协整、
// 半衰期），按均值回归阈值生成开平仓信号，并通过影子账户执行验证。
//
// 重要：本系统仅用于研究/验证，严禁真实下单。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"statarb-engine/internal/config"
	"statarb-engine/internal/core/model"
	"statarb-engine/internal/core/pair"
	"statarb-engine/internal/core/store"
	"statarb-engine/internal/core/strategy"
	"statarb-engine/internal/execution/paper"
	"statarb-engine/internal/feed"
	binancefeed "statarb-engine/internal/feed/binance"
	"statarb-engine/internal/feed/replay"
	"statarb-engine/internal/metrics"
	"statarb-engine/internal/notify"
	"statarb-engine/internal/output/jsonl"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	// .env 预加载（NATS_URL 等环境变量覆盖），文件不存在时静默跳过
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	// 核心组件
	priceStore := store.New(cfg.Engine.MaxSeriesLength)
	bus := notify.NewBus()
	pairManager := pair.New(cfg.Engine.MaxActivePairs, bus)
	account := paper.NewAccount(cfg.Paper.InitialCapital, cfg.Paper.SlippageBps, priceStore.LatestPrice, logger)
	strat := strategy.New(cfg.Engine, priceStore, pairManager, account, bus, logger)

	// NATS 事件桥接
	var natsPub *notify.NATSPublisher
	if cfg.Notify.NATSEnabled {
		natsPub, err = notify.NewNATSPublisher(cfg.Notify.NATSURL, cfg.Notify.SubjectPrefix, logger)
		if err != nil {
			logger.Error("连接 NATS 失败", zap.Error(err))
			os.Exit(1)
		}
		natsPub.Attach(bus)
	}

	// Prometheus 指标
	if cfg.Metrics.Enabled {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		logger.Info("指标服务已启动", zap.String("addr", cfg.Metrics.Addr))
	}
	bus.Subscribe(notify.EventPairActivated, func(notify.Event) {
		metrics.ActivePairs.Set(float64(pairManager.ActiveCount()))
	})
	bus.Subscribe(notify.EventPairDeactivated, func(notify.Event) {
		metrics.ActivePairs.Set(float64(pairManager.ActiveCount()))
	})

	// 落盘输出
	journal, err := jsonl.NewJournal(cfg.Output, logger)
	if err != nil {
		logger.Error("创建落盘输出失败", zap.Error(err))
		os.Exit(1)
	}
	strat.SetSignalHook(func(sig *model.Signal) {
		metrics.SignalsTotal.WithLabelValues(string(sig.Type)).Inc()
		journal.RecordSignal(sig)
	})
	account.SetFillHook(func(f paper.Fill) {
		journal.RecordFill(f)
	})
	strat.SetTradeHook(func(trade *model.ClosedTrade) {
		metrics.TradesTotal.WithLabelValues(trade.Reason).Inc()
		metrics.RealizedPnl.Add(trade.Pnl)
		journal.RecordTrade(trade)
	})

	// 行情来源
	source, err := newSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("启动行情来源失败", zap.Error(err))
		os.Exit(1)
	}
	go source.Run(ctx)

	if err := strat.Init(); err != nil {
		logger.Error("策略初始化失败", zap.Error(err))
		os.Exit(1)
	}

	runAggregator(ctx, logger, strat, account, pairManager, source, journal, cfg.Output.StatusIntervalMs)

	// 停止并强制清算，最终状态落盘
	strat.Finish()
	journal.RecordStatus(strat.Status())
	logger.Info("影子账户终态",
		zap.Int64("fills", account.FillCount()),
		zap.Float64("capital", account.Capital()),
		zap.Float64("equity", account.Equity()))

	// 优雅关闭（10s 超时）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = source.Close()
		_ = journal.Close()
		if natsPub != nil {
			_ = natsPub.Close()
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("关闭超时，强制退出")
	case <-done:
		logger.Info("关闭完成")
	}
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newSource 按配置构建行情来源
// ws 模式下完成连接与订阅；replay 模式直接返回文件回放来源。
func newSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (feed.Source, error) {
	switch cfg.Feed.Mode {
	case "ws":
		client := binancefeed.NewClient(cfg.Feed.WS, candidateSymbols(cfg.Engine.CandidatePairs), logger)

		startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
		defer startCancel()
		if err := client.Connect(startCtx); err != nil {
			return nil, err
		}
		if err := client.Subscribe(); err != nil {
			return nil, err
		}
		return client, nil
	case "replay":
		return replay.New(cfg.Feed.Replay, logger), nil
	default:
		return nil, fmt.Errorf("未知行情模式: %s", cfg.Feed.Mode)
	}
}

// candidateSymbols 收集候选交易对涉及的全部品种（去重）
func candidateSymbols(pairs []config.CandidatePair) []string {
	seen := make(map[string]struct{}, len(pairs)*2)
	symbols := make([]string, 0, len(pairs)*2)
	for _, cp := range pairs {
		for _, s := range []string{cp.AssetA, cp.AssetB} {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// runAggregator 聚合器主循环
// 所有策略状态变更都在本 goroutine 中完成：逐条消费蜡烛事件驱动
// 策略，周期性输出状态快照。行情通道关闭（回放结束）或 ctx 取消时退出。
func runAggregator(
	ctx context.Context,
	logger *zap.Logger,
	strat *strategy.Strategy,
	account *paper.Account,
	pairManager *pair.Manager,
	source feed.Source,
	journal *jsonl.Journal,
	statusIntervalMs int,
) {
	candleCh := source.Candles()

	if statusIntervalMs <= 0 {
		statusIntervalMs = 10000
	}
	statusTicker := time.NewTicker(time.Duration(statusIntervalMs) * time.Millisecond)
	defer statusTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case c, ok := <-candleCh:
			if !ok {
				logger.Info("行情通道关闭，聚合器退出")
				return
			}
			if c == nil {
				continue
			}
			metrics.CandlesTotal.WithLabelValues(c.Symbol).Inc()
			strat.OnCandle(c)

		case <-statusTicker.C:
			st := strat.Status()
			metrics.OpenPositions.Set(float64(st.OpenPositions))
			metrics.Equity.Set(account.Equity())
			journal.RecordStatus(st)
			logger.Info("状态快照",
				zap.Int("active_pairs", st.ActiveCount),
				zap.Int("open_positions", st.OpenPositions),
				zap.Float64("equity", st.Equity),
				zap.Float64("total_pnl", st.TotalPnl),
				zap.Float64("win_rate", st.WinRate))
		}
	}
}
