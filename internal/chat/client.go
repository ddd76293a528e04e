package chat

import (
	"errors"
	"sync"
)

var ErrClientClosed = errors.New("chat: client closed")

// Conn 是 Hub 对底层连接写侧的抽象，TCP 与 WebSocket 各有一个实现。
// WriteFrame 必须整帧写出或返回错误。
type Conn interface {
	WriteFrame(frame []byte) error
	Close() error
	RemoteAddr() string
}

// Client 一个已连接的对端
type Client struct {
	ID string

	conn Conn
	seq  uint64 // 加入顺序，ListNames 按此排序

	nameMu sync.RWMutex
	name   string

	// 同一连接上的帧互斥写出，避免并发广播交错
	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(id string, conn Conn, seq uint64, name string) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		seq:    seq,
		name:   name,
		closed: make(chan struct{}),
	}
}

// Name 当前昵称
func (c *Client) Name() string {
	c.nameMu.RLock()
	defer c.nameMu.RUnlock()
	return c.name
}

func (c *Client) setName(name string) {
	c.nameMu.Lock()
	c.name = name
	c.nameMu.Unlock()
}

func (c *Client) RemoteAddr() string {
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr()
}

// Write 写出一个已编码的帧
func (c *Client) Write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.IsClosed() {
		return ErrClientClosed
	}
	return c.conn.WriteFrame(frame)
}

// Close 关闭连接，可重复调用。不持有 writeMu，阻塞中的 Write 会因连接关闭而返回。
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// IsClosed 非阻塞判断是否已关闭
func (c *Client) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Done 连接关闭时关闭的通道
func (c *Client) Done() <-chan struct{} { return c.closed }
