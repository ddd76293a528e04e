package observe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NamesFunc 返回当前在线用户名
type NamesFunc func() []string

// NewRouter 构建运维 HTTP 路由：/healthz、/metrics、/users，
// extra 可挂载额外的处理器（例如 WebSocket 入口）
func NewRouter(names NamesFunc, extra map[string]http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		list := []string{}
		if names != nil {
			list = append(list, names()...)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	}).Methods(http.MethodGet)
	for path, h := range extra {
		r.Handle(path, h)
	}
	return r
}

// StartHTTP 启动运维 HTTP 服务，ctx 取消时优雅关闭
func StartHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
