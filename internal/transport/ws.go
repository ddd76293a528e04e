package transport

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hongjun500/chat-relay/internal/protocol"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

// wsConn 入站文本消息按 '\n' 拆行，与 TCP 一样每次 ReadLine 返回一行；
// 下发时每帧一条消息，内容与 TCP 一致
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	pending      []string // 同一条消息中尚未返回的行，只由读协程访问
	closeOnce    sync.Once
	closeChan    chan struct{}
}

func (w *wsConn) ReadLine() (string, error) {
	for len(w.pending) == 0 {
		mt, data, err := w.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if mt != websocket.TextMessage {
			continue
		}
		w.pending = splitLines(string(data))
	}
	line := w.pending[0]
	w.pending = w.pending[1:]
	return line, nil
}

// splitLines 拆分一条消息，末尾单个换行不产生额外的空行
func splitLines(msg string) []string {
	parts := strings.Split(strings.TrimSuffix(msg, "\n"), "\n")
	for i, p := range parts {
		parts[i] = protocol.Decode([]byte(p))
	}
	return parts
}

func (w *wsConn) WriteFrame(frame []byte) error {
	if w.writeTimeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	return w.conn.WriteMessage(websocket.TextMessage, frame)
}

func (w *wsConn) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}

func (w *wsConn) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeChan)
		err = w.conn.Close()
	})
	return err
}

// keepAlive 周期性 ping，pong 到达时延长读超时
func (w *wsConn) keepAlive() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := w.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-w.closeChan:
			return
		}
	}
}

// WSHandler 把 WebSocket 连接接入与 TCP 相同的连接处理器
type WSHandler struct {
	Handler  *Handler
	Opt      Options
	upgrader websocket.Upgrader
}

func NewWSHandler(h *Handler, opt Options) *WSHandler {
	return &WSHandler{
		Handler: h,
		Opt:     opt,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (ws *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写回了 HTTP 错误
		logger.L().Sugar().Warnw("ws_upgrade_error", "remote", r.RemoteAddr, "err", err)
		return
	}
	if ws.Opt.MaxLineSize > 0 {
		conn.SetReadLimit(int64(ws.Opt.MaxLineSize) + 2)
	}
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	wc := &wsConn{conn: conn, writeTimeout: ws.Opt.WriteTimeout, closeChan: make(chan struct{})}
	logger.L().Sugar().Infow("ws_accept", "remote", wc.RemoteAddr())
	go wc.keepAlive()
	ws.Handler.Serve(wc)
}
