package jsonl

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"statarb-engine/internal/config"
	"statarb-engine/internal/core/model"
)

// Journal 引擎运行日志落盘
// 按配置打开信号/完结交易/成交回执/状态快照四路 JSONL 输出流，
// 各路独立异步写入；单条写入失败只记日志，不影响引擎主流程。
type Journal struct {
	signals *Writer
	trades  *Writer
	fills   *Writer
	status  *Writer
	logger  *zap.Logger
}

// NewJournal 按输出配置创建落盘日志
// 未启用的输出流为 nil，对应 Record 调用为 no-op。
func NewJournal(cfg config.OutputConfig, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Journal{logger: logger.Named("journal")}

	var err error
	if cfg.SignalsEnabled {
		j.signals, err = NewWriter(filepath.Join(cfg.Dir, "signals.jsonl"), cfg.BufferSize)
		if err != nil {
			return nil, fmt.Errorf("创建信号输出失败: %w", err)
		}
	}
	if cfg.TradesEnabled {
		j.trades, err = NewWriter(filepath.Join(cfg.Dir, "trades.jsonl"), cfg.BufferSize)
		if err != nil {
			j.Close()
			return nil, fmt.Errorf("创建交易输出失败: %w", err)
		}
	}
	if cfg.FillsEnabled {
		j.fills, err = NewWriter(filepath.Join(cfg.Dir, "fills.jsonl"), cfg.BufferSize)
		if err != nil {
			j.Close()
			return nil, fmt.Errorf("创建成交回执输出失败: %w", err)
		}
	}
	if cfg.StatusEnabled {
		j.status, err = NewWriter(filepath.Join(cfg.Dir, "status.jsonl"), cfg.BufferSize)
		if err != nil {
			j.Close()
			return nil, fmt.Errorf("创建状态输出失败: %w", err)
		}
	}
	return j, nil
}

// RecordSignal 落盘一条交易信号
func (j *Journal) RecordSignal(sig *model.Signal) {
	if j == nil || j.signals == nil || sig == nil {
		return
	}
	if err := j.signals.Write(sig); err != nil {
		j.logger.Warn("信号落盘失败", zap.Error(err))
	}
}

// RecordTrade 落盘一笔完结交易
func (j *Journal) RecordTrade(trade *model.ClosedTrade) {
	if j == nil || j.trades == nil || trade == nil {
		return
	}
	if err := j.trades.Write(trade); err != nil {
		j.logger.Warn("交易落盘失败", zap.Error(err))
	}
}

// RecordFill 落盘一笔影子成交回执
func (j *Journal) RecordFill(fill any) {
	if j == nil || j.fills == nil || fill == nil {
		return
	}
	if err := j.fills.Write(fill); err != nil {
		j.logger.Warn("成交回执落盘失败", zap.Error(err))
	}
}

// RecordStatus 落盘一条状态快照
func (j *Journal) RecordStatus(snapshot any) {
	if j == nil || j.status == nil || snapshot == nil {
		return
	}
	if err := j.status.Write(snapshot); err != nil {
		j.logger.Warn("状态落盘失败", zap.Error(err))
	}
}

// Close 关闭所有输出流（先 flush）
// 有记录被丢弃或写入失败的输出流记 Warn 日志；返回第一个关闭错误。
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	var firstErr error
	for _, w := range []*Writer{j.signals, j.trades, j.fills, j.status} {
		if w == nil {
			continue
		}
		if dropped, encErrs := w.Dropped(), w.EncodeErrors(); dropped > 0 || encErrs > 0 {
			j.logger.Warn("输出流存在有损记录",
				zap.String("path", w.Path()),
				zap.Uint64("dropped", dropped),
				zap.Uint64("encode_errors", encErrs))
		}
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
