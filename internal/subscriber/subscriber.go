package subscriber

import (
	"context"

	"github.com/hongjun500/chat-relay/internal/bus/redisstream"
	"github.com/hongjun500/chat-relay/internal/chat"
	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

// RegisterMetrics 把消息与用户生命周期计数挂到 Hub 事件上
func RegisterMetrics(hub *chat.Hub) {
	hub.Subscribe(chat.EventMessageLocal, func(chat.Event) { observe.IncMessage("local") })
	hub.Subscribe(chat.EventMessageRemote, func(chat.Event) { observe.IncMessage("remote") })
	for _, t := range []chat.EventType{chat.EventUserJoined, chat.EventUserLeave, chat.EventUserRenamed} {
		hub.Subscribe(t, func(e chat.Event) { observe.IncUserEvent(string(e.Type())) })
	}
}

// Publisher 转发总线的发布端，*redisstream.Bus 实现了它
type Publisher interface {
	Publish(ctx context.Context, m *redisstream.Message) error
}

// Relay 把本地聊天消息转发到总线，并把其它节点的消息投递给本地客户端。
// 发布经过有界队列，由单个 goroutine 顺序写出，总线变慢不会阻塞连接处理器。
type Relay struct {
	hub   *chat.Hub
	pub   Publisher
	queue chan *redisstream.Message
}

func NewRelay(hub *chat.Hub, pub Publisher, size int) *Relay {
	if size <= 0 {
		size = 256
	}
	r := &Relay{hub: hub, pub: pub, queue: make(chan *redisstream.Message, size)}
	hub.Subscribe(chat.EventMessageLocal, r.enqueue)
	return r
}

func (r *Relay) enqueue(e chat.Event) {
	me, ok := e.(*chat.MessageEvent)
	if !ok {
		return
	}
	select {
	case r.queue <- &redisstream.Message{When: me.When, From: me.From, Text: me.Content}:
	default:
		observe.IncDropped()
	}
}

// Run 顺序发布队列中的消息，直到 ctx 取消
func (r *Relay) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-r.queue:
			if err := r.pub.Publish(ctx, m); err != nil && ctx.Err() == nil {
				logger.L().Sugar().Warnw("relay_publish_error", "err", err)
			}
		}
	}
}

// Deliver 作为 Bus.Consume 的 handler
func (r *Relay) Deliver(_ context.Context, m *redisstream.Message) error {
	r.hub.BroadcastRemote(m.From, m.Text, m.When)
	return nil
}
