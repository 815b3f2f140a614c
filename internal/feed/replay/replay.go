// Package replay 实现 JSONL 蜡烛文件回放。
// 用于确定性的策略验证运行：同一份行情文件回放结果完全可复现。
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"statarb-engine/internal/config"
	"statarb-engine/internal/core/model"
)

// Source JSONL 蜡烛回放来源
// 每行一条 Candle JSON；speed > 0 时按时间戳差值除以倍率 sleep，
// speed = 0 表示全速回放。
type Source struct {
	cfg    config.ReplayFeedConfig
	logger *zap.Logger

	candleCh chan *model.Candle
}

// New 创建回放来源
func New(cfg config.ReplayFeedConfig, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		cfg:      cfg,
		logger:   logger.Named("replay"),
		candleCh: make(chan *model.Candle, 1000),
	}
}

// Run 回放文件直到结束或 ctx 取消
// 退出前关闭蜡烛通道。非法行跳过并记录日志，不中断回放。
func (s *Source) Run(ctx context.Context) {
	defer close(s.candleCh)

	f, err := os.Open(s.cfg.Path)
	if err != nil {
		s.logger.Error("打开回放文件失败", zap.String("path", s.cfg.Path), zap.Error(err))
		return
	}
	defer f.Close()

	s.logger.Info("开始回放",
		zap.String("path", s.cfg.Path),
		zap.Float64("speed", s.cfg.Speed))

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var lastTsMs int64
	var lineNo, emitted, skipped int
	for sc.Scan() {
		lineNo++
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var c model.Candle
		if err := json.Unmarshal(line, &c); err != nil {
			skipped++
			s.logger.Warn("跳过非法回放行", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		if !c.IsValid() {
			skipped++
			continue
		}

		if s.cfg.Speed > 0 && lastTsMs > 0 && c.TsUnixMs > lastTsMs {
			delay := time.Duration(float64(c.TsUnixMs-lastTsMs)/s.cfg.Speed) * time.Millisecond
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		lastTsMs = c.TsUnixMs

		select {
		case <-ctx.Done():
			return
		case s.candleCh <- &c:
			emitted++
		}
	}

	if err := sc.Err(); err != nil {
		s.logger.Error("读取回放文件失败", zap.Error(err))
	}
	s.logger.Info("回放结束",
		zap.Int("emitted", emitted),
		zap.Int("skipped", skipped))
}

// Candles 获取蜡烛输出通道
func (s *Source) Candles() <-chan *model.Candle {
	return s.candleCh
}

// Close 关闭来源
// 回放没有外部连接，通道由 Run 退出时关闭。
func (s *Source) Close() error {
	return nil
}

// Dump 将蜡烛序列写为 JSONL 回放文件，便于采集后离线验证
func Dump(path string, candles []*model.Candle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建回放文件失败: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, c := range candles {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("写入回放行失败: %w", err)
		}
	}
	return w.Flush()
}
