package transport

import (
	"errors"
	"io"
	"net"
	"strings"

	"github.com/hongjun500/chat-relay/internal/chat"
	"github.com/hongjun500/chat-relay/internal/command"
	"github.com/hongjun500/chat-relay/internal/protocol"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

const CommandPrefix = "/"

// Handler 每个连接一个的处理循环：Connecting → Active → Closing → Closed
type Handler struct {
	Hub      *chat.Hub
	Commands *command.Registry
}

func NewHandler(hub *chat.Hub, commands *command.Registry) *Handler {
	return &Handler{Hub: hub, Commands: commands}
}

// Serve 阻塞直到连接结束，任何读错误都按断开处理，不向上传播
func (h *Handler) Serve(conn LineConn) {
	c := h.Hub.Register(conn)
	defer h.Hub.Remove(c.ID)

	name := c.Name()
	if err := h.Hub.Send(c, "Welcome "+name+"! Type /help for commands."); err != nil {
		return
	}
	h.Hub.Broadcast(name+" has joined the chat", c.ID)

	for {
		line, err := conn.ReadLine()
		if err != nil {
			h.logReadError(c, err)
			return
		}
		if line == "" {
			logger.L().Sugar().Debugw("client_empty_line", "client", c.ID)
			return
		}
		if strings.HasPrefix(line, CommandPrefix) {
			h.Commands.Dispatch(h.Hub, c, strings.TrimPrefix(line, CommandPrefix))
		} else {
			h.Hub.BroadcastChat(c, line)
		}
		// /quit 或写失败后连接已被移除
		if c.IsClosed() {
			return
		}
	}
}

func (h *Handler) logReadError(c *chat.Client, err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), c.IsClosed():
		logger.L().Sugar().Debugw("client_disconnected", "client", c.ID)
	case errors.Is(err, protocol.ErrLineTooLong):
		logger.L().Sugar().Warnw("client_line_too_long", "client", c.ID)
	default:
		logger.L().Sugar().Warnw("client_read_error", "client", c.ID, "err", err)
	}
}
