package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hongjun500/chat-relay/internal/bus/redisstream"
	"github.com/hongjun500/chat-relay/internal/chat"
	"github.com/hongjun500/chat-relay/internal/command"
	"github.com/hongjun500/chat-relay/internal/config"
	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/internal/subscriber"
	"github.com/hongjun500/chat-relay/internal/transport"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

func main() {
	cfg := config.Load()
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()
	logger.SetLevel(cfg.LogLevel)
	defer logger.Sync()

	log := logger.L().Sugar()
	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid config", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := chat.NewHub()
	subscriber.RegisterMetrics(hub)
	cmds, err := command.NewBuiltinRegistry()
	if err != nil {
		log.Fatalw("register commands", "err", err)
	}
	handler := transport.NewHandler(hub, cmds)
	opt := transport.Options{WriteTimeout: cfg.WriteTimeout, MaxLineSize: cfg.MaxLineSize}

	if cfg.RedisAddr != "" {
		startRelay(ctx, cfg, hub)
	}

	if cfg.HTTPAddr != "" {
		router := observe.NewRouter(hub.ListNames, map[string]http.Handler{
			cfg.WSPath: transport.NewWSHandler(handler, opt),
		})
		go func() {
			log.Infow("http_listen", "addr", cfg.HTTPAddr, "ws_path", cfg.WSPath)
			if err := observe.StartHTTP(ctx, cfg.HTTPAddr, router); err != nil {
				log.Errorw("http server exit", "err", err)
			}
		}()
	}

	srv := &transport.TCPServer{
		Addr:     cfg.TCPAddr(),
		MaxConns: cfg.MaxConns,
		Handler:  handler,
		Opt:      opt,
	}
	log.Infow("chat-relay start", "addr", srv.Addr, "backlog", cfg.Backlog, "node", cfg.NodeID)
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatalw("tcp server exit", "err", err)
	}
	log.Infow("shutting down", "online", hub.Count())
}

func startRelay(ctx context.Context, cfg *config.Config, hub *chat.Hub) {
	log := logger.L().Sugar()
	bus := redisstream.New(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.NodeID)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := bus.Ping(pingCtx); err != nil {
		log.Fatalw("redis relay unreachable", "addr", cfg.RedisAddr, "err", err)
	}
	if err := bus.EnsureGroup(ctx); err != nil {
		log.Fatalw("redis relay", "addr", cfg.RedisAddr, "err", err)
	}
	relay := subscriber.NewRelay(hub, bus, 0)
	go relay.Run(ctx)
	go func() {
		defer bus.Close()
		if err := bus.Consume(ctx, relay.Deliver); err != nil && ctx.Err() == nil {
			log.Errorw("redis relay consume exit", "err", err)
		}
	}()
	log.Infow("redis_relay", "addr", cfg.RedisAddr, "stream", cfg.RedisStream, "node", cfg.NodeID)
}
