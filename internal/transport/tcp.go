package transport

import (
	"net"
	"time"

	"github.com/hongjun500/chat-relay/internal/protocol"
)

// TCPConn 基于换行分帧的 TCP 连接
type TCPConn struct {
	conn         net.Conn
	r            *protocol.LineReader
	writeTimeout time.Duration
}

func NewTCPConn(c net.Conn, opt Options) *TCPConn {
	return &TCPConn{
		conn:         c,
		r:            protocol.NewLineReader(c, opt.MaxLineSize),
		writeTimeout: opt.WriteTimeout,
	}
}

func (t *TCPConn) ReadLine() (string, error) { return t.r.ReadLine() }

// WriteFrame 写出一个完整帧，超过写超时视为失败
func (t *TCPConn) WriteFrame(frame []byte) error {
	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	_, err := t.conn.Write(frame)
	return err
}

func (t *TCPConn) Close() error { return t.conn.Close() }

func (t *TCPConn) RemoteAddr() string {
	if t.conn == nil || t.conn.RemoteAddr() == nil {
		return ""
	}
	return t.conn.RemoteAddr().String()
}
