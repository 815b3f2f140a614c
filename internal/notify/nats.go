// Package notify 实现交易对生命周期事件的发布/订阅机制。
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSPublisher 将总线事件桥接到 NATS
// 外部看板/告警工具订阅 <prefix>.<kind> 主题即可接收 JSON 事件。
type NATSPublisher struct {
	// conn NATS 连接
	conn *nats.Conn
	// subjectPrefix 主题前缀，如 statarb.pairs
	subjectPrefix string
	// logger 日志记录器
	logger *zap.Logger
}

// NewNATSPublisher 连接 NATS 并创建桥接发布器
// 参数 url: NATS 服务地址，如 nats://127.0.0.1:4222
// 参数 subjectPrefix: 主题前缀
// 参数 logger: 日志记录器
func NewNATSPublisher(url, subjectPrefix string, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("连接 NATS 失败: %w", err)
	}

	return &NATSPublisher{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		logger:        logger.Named("nats"),
	}, nil
}

// Attach 将发布器挂到事件总线上
// 所有事件类型都会被桥接
func (p *NATSPublisher) Attach(bus *Bus) {
	bus.SubscribeAll(p.publish)
}

// publish 序列化事件并发布到 NATS
// 发布失败仅记录日志，不影响引擎主流程。
func (p *NATSPublisher) publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("序列化事件失败", zap.Error(err), zap.String("kind", string(ev.Kind)))
		return
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, ev.Kind)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("发布事件到 NATS 失败", zap.Error(err), zap.String("subject", subject))
	}
}

// Close 排空并关闭 NATS 连接
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("排空 NATS 连接失败: %w", err)
	}
	return nil
}
