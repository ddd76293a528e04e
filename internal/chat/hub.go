package chat

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/internal/protocol"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

type EventHandler func(Event)

type handlerEntry struct {
	id uint64
	fn EventHandler
}

// Hub 连接注册表 + 广播引擎，是进程内唯一的共享可变状态
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // key: client.ID
	seq     uint64

	// 按 EventType 注册的处理器
	handlersMu sync.RWMutex
	handlers   map[EventType][]handlerEntry
	nextHID    uint64
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		handlers: make(map[EventType][]handlerEntry),
	}
}

// Subscribe 注册事件处理器
func (h *Hub) Subscribe(t EventType, fn EventHandler) { _ = h.SubscribeCancelable(t, fn) }

// SubscribeCancelable 注册并返回一个取消函数，用于移除该处理器
func (h *Hub) SubscribeCancelable(t EventType, fn EventHandler) (cancel func()) {
	h.handlersMu.Lock()
	h.nextHID++
	id := h.nextHID
	h.handlers[t] = append(h.handlers[t], handlerEntry{id: id, fn: fn})
	h.handlersMu.Unlock()

	return func() {
		h.handlersMu.Lock()
		defer h.handlersMu.Unlock()
		entries := h.handlers[t]
		filtered := make([]handlerEntry, 0, len(entries))
		for _, e := range entries {
			if e.id != id {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			delete(h.handlers, t)
		} else {
			h.handlers[t] = filtered
		}
	}
}

// Emit 在调用方 goroutine 中依次执行处理器，处理器必须快速返回。
// 同步执行保证同一连接产生的事件按顺序到达订阅者。
func (h *Hub) Emit(e Event) {
	h.handlersMu.RLock()
	entries := append([]handlerEntry(nil), h.handlers[e.Type()]...)
	h.handlersMu.RUnlock()
	for _, entry := range entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.L().Sugar().Errorw("event_handler_panic", "event", e.Type(), "panic", r)
				}
			}()
			entry.fn(e)
		}()
	}
}

// Register 登记新连接，昵称为 User_<当前在线数>
func (h *Hub) Register(conn Conn) *Client {
	h.mu.Lock()
	h.seq++
	c := newClient(uuid.NewString(), conn, h.seq, fmt.Sprintf("User_%d", len(h.clients)))
	h.clients[c.ID] = c
	h.mu.Unlock()

	observe.AddOnline(1)
	logger.L().Sugar().Infow("client_registered", "client", c.ID, "name", c.Name(), "remote", c.RemoteAddr())
	h.Emit(&UserEvent{When: time.Now(), ID: c.ID, Name: c.Name(), Kind: EventUserJoined})
	return c
}

// Rename 修改昵称，不校验唯一性；id 不存在时 ok 为 false
func (h *Hub) Rename(id, name string) (old string, ok bool) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		old = c.Name()
		c.setName(name)
	}
	h.mu.Unlock()
	if !ok {
		return "", false
	}
	logger.L().Sugar().Infow("client_renamed", "client", id, "old", old, "new", name)
	h.Emit(&UserEvent{When: time.Now(), ID: id, Name: name, Kind: EventUserRenamed})
	return old, true
}

// Remove 删除并关闭连接，然后向剩余客户端广播离开通知。
// 只有真正删除条目的那次调用会广播，重复调用是 no-op。
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	c.Close()
	observe.AddOnline(-1)
	name := c.Name()
	logger.L().Sugar().Infow("client_removed", "client", id, "name", name)
	h.Emit(&UserEvent{When: time.Now(), ID: id, Name: name, Kind: EventUserLeave})
	h.Broadcast(name+" has left the chat", "")
}

// Get 按 ID 查找
func (h *Hub) Get(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// Count 当前在线数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// ListNames 返回在线用户名，按加入顺序
func (h *Hub) ListNames() []string {
	clients := h.snapshot()
	names := make([]string, 0, len(clients))
	for _, c := range clients {
		names = append(names, c.Name())
	}
	return names
}

// ForEachExcept 对除 id 外的每个客户端调用 fn。
// fn 在锁外执行，可以调用 Remove；遍历期间被移除的客户端会被跳过。
func (h *Hub) ForEachExcept(id string, fn func(*Client)) {
	for _, c := range h.snapshot() {
		if c.ID == id || c.IsClosed() {
			continue
		}
		fn(c)
	}
}

// Broadcast 编码一次后发给除 excludeID 外的所有客户端，返回成功写出的数量。
// 写失败的客户端被移除，移除本身会再广播一次离开通知。
func (h *Hub) Broadcast(text, excludeID string) int {
	frame := protocol.Encode(text)
	delivered := 0
	h.ForEachExcept(excludeID, func(c *Client) {
		if err := c.Write(frame); err != nil {
			h.dropOnError(c, err)
			return
		}
		delivered++
	})
	logger.L().Sugar().Debugw("broadcast", "text", text, "exclude", excludeID, "delivered", delivered)
	return delivered
}

// Send 点对点发送给单个客户端，失败时移除该客户端
func (h *Hub) Send(c *Client, text string) error {
	if err := c.Write(protocol.Encode(text)); err != nil {
		h.dropOnError(c, err)
		return err
	}
	return nil
}

// BroadcastChat 广播一条本地聊天消息（不回显给发送者）
func (h *Hub) BroadcastChat(from *Client, content string) int {
	name := from.Name()
	n := h.Broadcast(name+": "+content, from.ID)
	h.Emit(&MessageEvent{When: time.Now(), From: name, Content: content, Local: true})
	return n
}

// BroadcastRemote 把其它节点同步来的消息发给所有本地客户端。
// 远端内容不经过本节点的分行，换行会被替换，避免伪造额外的帧。
func (h *Hub) BroadcastRemote(from, content string, t time.Time) int {
	from, content = protocol.SingleLine(from), protocol.SingleLine(content)
	n := h.Broadcast(from+": "+content, "")
	h.Emit(&MessageEvent{When: t, From: from, Content: content, Local: false})
	return n
}

func (h *Hub) dropOnError(c *Client, err error) {
	if !errors.Is(err, ErrClientClosed) {
		observe.IncWriteFailure()
		logger.L().Sugar().Warnw("write_failed", "client", c.ID, "name", c.Name(), "err", err)
	}
	h.Remove(c.ID)
}
