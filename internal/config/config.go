// Package config 负责加载和验证 YAML 配置文件。
// 提供引擎所需的所有配置项，包括套利策略参数、影子账户、行情接入、
// 事件桥接、指标暴露与落盘设置。
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 应用配置根结构
// 包含所有子模块的配置项
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Engine 统计套利引擎配置
	Engine EngineConfig `yaml:"engine"`
	// Paper 影子账户配置
	Paper PaperConfig `yaml:"paper"`
	// Feed 行情接入配置
	Feed FeedConfig `yaml:"feed"`
	// Notify 事件桥接配置
	Notify NotifyConfig `yaml:"notify"`
	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics"`
	// Output 落盘输出配置
	Output OutputConfig `yaml:"output"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// CandidatePair 候选交易对配置
type CandidatePair struct {
	// AssetA 资产 A 品种标识，如 BTC/USDT
	AssetA string `yaml:"asset_a"`
	// AssetB 资产 B 品种标识，如 ETH/USDT
	AssetB string `yaml:"asset_b"`
}

// EngineConfig 统计套利引擎配置
// 所有阈值均可覆盖，零值在 setDefaults 中填充
type EngineConfig struct {
	// ArbType 套利类型: cointegration, pairs_trading, cross_exchange, perpetual_spot, triangular
	ArbType string `yaml:"arb_type"`
	// CandidatePairs 启动时注册的候选交易对列表
	CandidatePairs []CandidatePair `yaml:"candidate_pairs"`

	// EntryZScore 入场 z-score 阈值
	EntryZScore float64 `yaml:"entry_zscore"`
	// ExitZScore 出场 z-score 阈值（价差回归均值）
	ExitZScore float64 `yaml:"exit_zscore"`
	// StopLossZScore 止损 z-score 阈值（价差继续发散时强制平仓）
	StopLossZScore float64 `yaml:"stop_loss_zscore"`

	// LookbackPeriod 统计回看窗口（周期数）
	LookbackPeriod int `yaml:"lookback_period"`
	// CointegrationTestPeriod 协整检验窗口（周期数）
	CointegrationTestPeriod int `yaml:"cointegration_test_period"`
	// StatsRefreshTicks 每多少次行情更新重估一次统计
	StatsRefreshTicks int `yaml:"stats_refresh_ticks"`
	// MaxSeriesLength 价格序列容量（FIFO 淘汰）
	MaxSeriesLength int `yaml:"max_series_length"`

	// MaxPositionPerPair 单对最大名义仓位（资金比例，0-1）
	MaxPositionPerPair float64 `yaml:"max_position_per_pair"`
	// MaxTotalPosition 总名义仓位上限（资金比例，0-1）
	MaxTotalPosition float64 `yaml:"max_total_position"`
	// MaxActivePairs 活跃交易对上限
	MaxActivePairs int `yaml:"max_active_pairs"`

	// MinCorrelation 激活交易对所需的最小相关系数
	MinCorrelation float64 `yaml:"min_correlation"`
	// MinHalfLife 半衰期下限（周期数）
	MinHalfLife float64 `yaml:"min_half_life"`
	// MaxHalfLife 半衰期上限（周期数）
	MaxHalfLife float64 `yaml:"max_half_life"`

	// SpreadEntryThreshold 跨交易所模式的净价差入场阈值（比例）
	SpreadEntryThreshold float64 `yaml:"spread_entry_threshold"`
	// TradingCost 单边交易成本（比例）
	TradingCost float64 `yaml:"trading_cost"`
	// SlippageEstimate 单边滑点估计（比例）
	SlippageEstimate float64 `yaml:"slippage_estimate"`

	// BasisEntryThreshold 永续/现货模式的年化基差入场阈值
	BasisEntryThreshold float64 `yaml:"basis_entry_threshold"`
	// BasisExitThreshold 年化基差出场阈值（回落到该值以内平仓）
	BasisExitThreshold float64 `yaml:"basis_exit_threshold"`
	// BasisPeriodDays 基差观测周期（天），用于线性年化
	BasisPeriodDays float64 `yaml:"basis_period_days"`

	// ConsecutiveLossLimit 连续亏损上限，达到后进入冷却
	ConsecutiveLossLimit int `yaml:"consecutive_loss_limit"`
	// CoolingPeriodMs 冷却时长（毫秒），冷却期内不开新仓
	CoolingPeriodMs int `yaml:"cooling_period_ms"`
}

// PaperConfig 影子账户配置
type PaperConfig struct {
	// InitialCapital 初始资金
	InitialCapital float64 `yaml:"initial_capital"`
	// SlippageBps 成交滑点（基点）
	SlippageBps float64 `yaml:"slippage_bps"`
}

// FeedConfig 行情接入配置
type FeedConfig struct {
	// Mode 行情模式: ws 或 replay
	Mode string `yaml:"mode"`
	// WS WebSocket 行情配置
	WS WSFeedConfig `yaml:"ws"`
	// Replay 回放行情配置
	Replay ReplayFeedConfig `yaml:"replay"`
}

// WSFeedConfig WebSocket 行情配置
type WSFeedConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// PingIntervalMs 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
	// ReadTimeoutMs 读取超时（毫秒）
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
}

// ReplayFeedConfig 回放行情配置
type ReplayFeedConfig struct {
	// Path JSONL 蜡烛文件路径
	Path string `yaml:"path"`
	// Speed 回放速率倍数；0 表示全速回放（不 sleep）
	Speed float64 `yaml:"speed"`
}

// NotifyConfig 事件桥接配置
type NotifyConfig struct {
	// NATSEnabled 是否启用 NATS 桥接
	NATSEnabled bool `yaml:"nats_enabled"`
	// NATSURL NATS 服务地址；环境变量 NATS_URL 优先
	NATSURL string `yaml:"nats_url"`
	// SubjectPrefix 主题前缀
	SubjectPrefix string `yaml:"subject_prefix"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// Enabled 是否暴露 /metrics
	Enabled bool `yaml:"enabled"`
	// Addr 监听地址，如 :9090
	Addr string `yaml:"addr"`
}

// OutputConfig 落盘输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// SignalsEnabled 是否输出信号文件
	SignalsEnabled bool `yaml:"signals_enabled"`
	// TradesEnabled 是否输出完结交易文件
	TradesEnabled bool `yaml:"trades_enabled"`
	// FillsEnabled 是否输出影子成交回执文件
	FillsEnabled bool `yaml:"fills_enabled"`
	// StatusEnabled 是否输出状态快照文件
	StatusEnabled bool `yaml:"status_enabled"`
	// StatusIntervalMs 状态快照输出间隔（毫秒）
	StatusIntervalMs int `yaml:"status_interval_ms"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// validArbTypes 合法的套利类型集合
var validArbTypes = map[string]bool{
	"cointegration":  true,
	"pairs_trading":  true,
	"cross_exchange": true,
	"perpetual_spot": true,
	"triangular":     true,
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "statarb-engine"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	// 引擎默认值（与规格默认一致）
	e := &c.Engine
	if e.ArbType == "" {
		e.ArbType = "pairs_trading"
	}
	if e.EntryZScore == 0 {
		e.EntryZScore = 2.0
	}
	if e.ExitZScore == 0 {
		e.ExitZScore = 0.5
	}
	if e.StopLossZScore == 0 {
		e.StopLossZScore = 4.0
	}
	if e.LookbackPeriod == 0 {
		e.LookbackPeriod = 60
	}
	if e.CointegrationTestPeriod == 0 {
		e.CointegrationTestPeriod = 100
	}
	if e.StatsRefreshTicks == 0 {
		e.StatsRefreshTicks = 20
	}
	if e.MaxSeriesLength == 0 {
		e.MaxSeriesLength = 500
	}
	if e.MaxPositionPerPair == 0 {
		e.MaxPositionPerPair = 0.1
	}
	if e.MaxTotalPosition == 0 {
		e.MaxTotalPosition = 0.5
	}
	if e.MaxActivePairs == 0 {
		e.MaxActivePairs = 10
	}
	if e.MinCorrelation == 0 {
		e.MinCorrelation = 0.8
	}
	if e.MinHalfLife == 0 {
		e.MinHalfLife = 1
	}
	if e.MaxHalfLife == 0 {
		e.MaxHalfLife = 100
	}
	if e.SpreadEntryThreshold == 0 {
		e.SpreadEntryThreshold = 0.003
	}
	if e.TradingCost == 0 {
		e.TradingCost = 0.001
	}
	if e.SlippageEstimate == 0 {
		e.SlippageEstimate = 0.0005
	}
	if e.BasisEntryThreshold == 0 {
		e.BasisEntryThreshold = 0.05
	}
	if e.BasisExitThreshold == 0 {
		e.BasisExitThreshold = 0.01
	}
	if e.BasisPeriodDays == 0 {
		e.BasisPeriodDays = 1
	}
	if e.ConsecutiveLossLimit == 0 {
		e.ConsecutiveLossLimit = 3
	}
	if e.CoolingPeriodMs == 0 {
		e.CoolingPeriodMs = 1_800_000 // 30 分钟
	}

	// 影子账户默认值
	if c.Paper.InitialCapital == 0 {
		c.Paper.InitialCapital = 100_000
	}

	// 行情默认值
	if c.Feed.Mode == "" {
		c.Feed.Mode = "replay"
	}
	if c.Feed.WS.PingIntervalMs == 0 {
		c.Feed.WS.PingIntervalMs = 25000 // 25 秒
	}
	if c.Feed.WS.ReadTimeoutMs == 0 {
		c.Feed.WS.ReadTimeoutMs = 30000 // 30 秒
	}

	// 事件桥接默认值
	if c.Notify.SubjectPrefix == "" {
		c.Notify.SubjectPrefix = "statarb.pairs"
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		c.Notify.NATSURL = url
	}

	// 指标默认值
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}

	// 输出默认值
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.StatusIntervalMs == 0 {
		c.Output.StatusIntervalMs = 10000 // 10 秒
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	e := &c.Engine

	// 验证套利类型
	if !validArbTypes[e.ArbType] {
		errs = append(errs, fmt.Sprintf("engine.arb_type: 无效的套利类型 '%s'", e.ArbType))
	}

	// 验证候选交易对
	if len(e.CandidatePairs) == 0 {
		errs = append(errs, "engine.candidate_pairs: 至少需要配置一个候选交易对")
	}
	for i, cp := range e.CandidatePairs {
		if cp.AssetA == "" || cp.AssetB == "" {
			errs = append(errs, fmt.Sprintf("engine.candidate_pairs[%d]: 品种不能为空", i))
		}
		if cp.AssetA == cp.AssetB {
			errs = append(errs, fmt.Sprintf("engine.candidate_pairs[%d]: 两腿品种不能相同", i))
		}
	}

	// 验证 z-score 阈值单调性
	if e.EntryZScore <= e.ExitZScore {
		errs = append(errs, fmt.Sprintf("engine.entry_zscore (%.2f) 必须大于 exit_zscore (%.2f)", e.EntryZScore, e.ExitZScore))
	}
	if e.StopLossZScore <= e.EntryZScore {
		errs = append(errs, fmt.Sprintf("engine.stop_loss_zscore (%.2f) 必须大于 entry_zscore (%.2f)", e.StopLossZScore, e.EntryZScore))
	}

	// 验证窗口与仓位比例
	if e.LookbackPeriod <= 1 {
		errs = append(errs, "engine.lookback_period: 回看窗口必须大于 1")
	}
	if e.CointegrationTestPeriod < e.LookbackPeriod {
		errs = append(errs, "engine.cointegration_test_period: 协整检验窗口不能小于回看窗口")
	}
	if e.StatsRefreshTicks < 1 {
		errs = append(errs, "engine.stats_refresh_ticks: 统计重估间隔必须为正数")
	}
	if e.MaxSeriesLength < e.CointegrationTestPeriod {
		errs = append(errs, "engine.max_series_length: 序列容量不能小于协整检验窗口")
	}
	if err := validateRatio(e.MaxPositionPerPair, "engine.max_position_per_pair"); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRatio(e.MaxTotalPosition, "engine.max_total_position"); err != nil {
		errs = append(errs, err.Error())
	}
	if e.MaxPositionPerPair > e.MaxTotalPosition {
		errs = append(errs, "engine.max_position_per_pair: 单对仓位不能超过总仓位上限")
	}
	if e.MinHalfLife < 0 || e.MaxHalfLife < e.MinHalfLife {
		errs = append(errs, "engine.min_half_life/max_half_life: 半衰期区间非法")
	}
	if e.MinCorrelation < 0 || e.MinCorrelation > 1 {
		errs = append(errs, "engine.min_correlation: 相关系数阈值必须在 0-1 之间")
	}
	if e.ConsecutiveLossLimit < 1 {
		errs = append(errs, "engine.consecutive_loss_limit: 连续亏损上限必须为正数")
	}
	if e.CoolingPeriodMs < 0 {
		errs = append(errs, "engine.cooling_period_ms: 冷却时长不能为负数")
	}

	// 验证影子账户
	if c.Paper.InitialCapital <= 0 {
		errs = append(errs, "paper.initial_capital: 初始资金必须为正数")
	}
	if c.Paper.SlippageBps < 0 {
		errs = append(errs, "paper.slippage_bps: 滑点不能为负数")
	}

	// 验证行情接入
	switch c.Feed.Mode {
	case "ws":
		if c.Feed.WS.URL == "" {
			errs = append(errs, "feed.ws.url: WebSocket 地址不能为空")
		}
	case "replay":
		if c.Feed.Replay.Path == "" {
			errs = append(errs, "feed.replay.path: 回放文件路径不能为空")
		}
	default:
		errs = append(errs, fmt.Sprintf("feed.mode: 无效的行情模式 '%s'，有效值: ws, replay", c.Feed.Mode))
	}

	// 验证事件桥接
	if c.Notify.NATSEnabled && c.Notify.NATSURL == "" {
		errs = append(errs, "notify.nats_url: 启用 NATS 桥接时地址不能为空")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validateRatio 验证比例字段范围（0-1]
// 参数 ratio: 比例值
// 参数 field: 字段名称，用于错误消息
// 返回: 若比例无效则返回错误
func validateRatio(ratio float64, field string) error {
	if ratio <= 0 || ratio > 1 {
		return fmt.Errorf("%s: 比例必须在 (0,1] 之间，当前值: %f", field, ratio)
	}
	return nil
}
