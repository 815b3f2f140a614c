// Package notify 实现交易对生命周期事件的发布/订阅机制。
// 引擎内部使用进程内回调总线；外部工具可通过 NATS 桥接订阅（见 nats.go）。
package notify

import (
	"sync"
)

// EventKind 事件类型
type EventKind string

const (
	// EventPairAdded 交易对已注册
	EventPairAdded EventKind = "pair_added"
	// EventPairActivated 交易对已激活
	EventPairActivated EventKind = "pair_activated"
	// EventPairDeactivated 交易对已停用
	EventPairDeactivated EventKind = "pair_deactivated"
	// EventTradeClosed 一笔价差交易已完结
	EventTradeClosed EventKind = "trade_closed"
)

// Event 生命周期事件
type Event struct {
	// Kind 事件类型
	Kind EventKind `json:"kind"`
	// PairID 交易对标识
	PairID string `json:"pair_id"`
	// AssetA 资产 A
	AssetA string `json:"asset_a,omitempty"`
	// AssetB 资产 B
	AssetB string `json:"asset_b,omitempty"`
	// TsUnixNs 事件时间（纳秒时间戳）
	TsUnixNs int64 `json:"ts_unix_ns"`
	// Detail 附加信息（如平仓盈亏），可为 nil
	Detail map[string]float64 `json:"detail,omitempty"`
}

// Handler 事件处理回调
// 在发布者的 goroutine 中同步执行，处理器内不应阻塞。
type Handler func(ev Event)

// Bus 进程内事件总线
// 事件由聚合器单 goroutine 发布；订阅通常仅在启动阶段进行。
type Bus struct {
	// handlers 按事件类型注册的处理器列表
	handlers map[EventKind][]Handler
	mu       sync.RWMutex
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventKind][]Handler),
	}
}

// Subscribe 订阅指定类型的事件
// 参数 kind: 事件类型
// 参数 h: 处理回调，同步执行
func (b *Bus) Subscribe(kind EventKind, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll 订阅所有已知类型的事件
func (b *Bus) SubscribeAll(h Handler) {
	for _, kind := range []EventKind{EventPairAdded, EventPairActivated, EventPairDeactivated, EventTradeClosed} {
		b.Subscribe(kind, h)
	}
}

// Publish 发布事件
// 按注册顺序同步调用所有处理器；单个处理器 panic 不做恢复（视为编程错误）。
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	hs := b.handlers[ev.Kind]
	b.mu.RUnlock()

	for _, h := range hs {
		h(ev)
	}
}

// SubscriberCount 获取指定类型的订阅者数量
func (b *Bus) SubscriberCount(kind EventKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}
