// Package binance 实现 Binance 行情消息解析。
package binance

import (
	"encoding/json"
	"fmt"
	"strings"

	"statarb-engine/internal/core/model"
	"statarb-engine/internal/util/fastparse"
)

// Parser Binance 消息解析器
// 将 miniTicker 推送转换为统一蜡烛事件，并过滤未订阅交易对。
type Parser struct {
	// canonBySym 交易所 symbol（大写無分隔）到统一品种标识的映射
	canonBySym map[string]string
}

// NewParser 创建 Binance 消息解析器
// 参数 symbols: 统一品种标识列表，如 BTC/USDT
func NewParser(symbols []string) *Parser {
	m := make(map[string]string, len(symbols))
	for _, s := range symbols {
		m[ExchangeSymbol(s)] = s
	}
	return &Parser{canonBySym: m}
}

// ExchangeSymbol 将统一品种标识转换为 Binance symbol
// BTC/USDT -> BTCUSDT
func ExchangeSymbol(canon string) string {
	return strings.ToUpper(strings.ReplaceAll(canon, "/", ""))
}

// Parse 解析 Binance WebSocket 消息为蜡烛事件
// 参数 data: 原始消息字节
// 返回: 非 ticker 消息或未订阅交易对返回 nil
func (p *Parser) Parse(data []byte) (*model.Candle, error) {
	var msg MiniTicker
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 Binance 消息失败: %w", err)
	}

	if msg.EventType != "24hrMiniTicker" {
		return nil, nil
	}

	canon, ok := p.canonBySym[strings.ToUpper(msg.Symbol)]
	if !ok {
		return nil, nil
	}

	closePx, err := fastparse.ParseFloat(msg.Close)
	if err != nil {
		return nil, fmt.Errorf("解析收盘价失败: %w", err)
	}
	volume, _ := fastparse.ParseFloat(msg.Volume)

	c := &model.Candle{
		Symbol:   canon,
		Close:    closePx,
		Volume:   volume,
		TsUnixMs: msg.EventTimeMs,
	}
	if !c.IsValid() {
		return nil, fmt.Errorf("无效蜡烛: symbol=%s close=%f", c.Symbol, c.Close)
	}
	return c, nil
}
