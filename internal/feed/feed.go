// Package feed 定义行情接入的来源抽象。
// 引擎只消费统一的蜡烛通道，不关心行情来自 WebSocket 还是回放文件。
package feed

import (
	"context"

	"statarb-engine/internal/core/model"
)

// Source 行情来源
// Run 阻塞直到 ctx 取消或数据耗尽；Candles 通道在来源退出后关闭。
type Source interface {
	// Run 启动行情主循环
	Run(ctx context.Context)
	// Candles 获取蜡烛输出通道
	Candles() <-chan *model.Candle
	// Close 关闭来源并释放资源
	Close() error
}
