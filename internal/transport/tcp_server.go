package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hongjun500/chat-relay/pkg/logger"
	"golang.org/x/net/netutil"
)

// TCPServer 监听 TCP 并为每个连接启动一个 Handler
type TCPServer struct {
	Addr     string
	MaxConns int // 0 不限
	Handler  *Handler
	Opt      Options
}

// ListenAndServe 绑定失败直接返回错误；ctx 取消时关闭监听并返回 nil
func (s *TCPServer) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve 在已有监听上接受连接，不等待已启动的连接处理器
func (s *TCPServer) Serve(ctx context.Context, ln net.Listener) error {
	if s.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.MaxConns)
	}
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer ln.Close()

	logger.L().Sugar().Infow("tcp_listen", "addr", ln.Addr().String(), "max_conns", s.MaxConns)
	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			// 临时错误退避重试，参考 net/http
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else if tempDelay *= 2; tempDelay > time.Second {
				tempDelay = time.Second
			}
			logger.L().Sugar().Warnw("tcp_accept_error", "err", err, "retry_in", tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0
		logger.L().Sugar().Infow("tcp_accept", "remote", conn.RemoteAddr().String())
		go s.Handler.Serve(NewTCPConn(conn, s.Opt))
	}
}
