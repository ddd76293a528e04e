package transport

import (
	"time"

	"github.com/hongjun500/chat-relay/internal/chat"
)

// Options configures transports (shared across TCP/WS where applicable)
type Options struct {
	WriteTimeout time.Duration // per-write deadline; 0 to disable
	MaxLineSize  int           // max inbound line in bytes
}

// LineConn 一条已建立的连接：写侧交给 Hub，读侧由连接处理器独占
type LineConn interface {
	chat.Conn
	ReadLine() (string, error)
}
