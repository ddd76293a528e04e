package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongjun500/chat-relay/pkg/logger"
)

type Config struct {
	Host         string
	Port         int
	Backlog      int // listen(2) 的 backlog；Go 标准库使用内核 somaxconn，这里仅记录
	MaxConns     int // 同时在线的连接上限，0 不限
	MaxLineSize  int
	WriteTimeout time.Duration

	HTTPAddr string // 运维 HTTP（/healthz /metrics /users /ws），空表示关闭
	WSPath   string

	RedisAddr   string // 跨节点转发，空表示关闭
	RedisDB     int
	RedisStream string
	NodeID      string

	LogLevel string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	s := getEnv(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		invalid(key, s, def)
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	// 兼容纯数字（秒）
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	invalid(key, v, def)
	return def
}

func invalid(key, value string, def any) {
	logger.L().Sugar().Warnw("config_invalid_value", "key", key, "value", value, "default", def)
}

// Load 从环境变量读取配置，非法值回退为默认值
func Load() *Config {
	return &Config{
		Host:         getEnv("CHAT_HOST", "0.0.0.0"),
		Port:         getInt("CHAT_PORT", 5000),
		Backlog:      getInt("CHAT_BACKLOG", 5),
		MaxConns:     getInt("CHAT_MAX_CONNS", 0),
		MaxLineSize:  getInt("CHAT_MAX_LINE", 4096),
		WriteTimeout: getDuration("CHAT_WRITE_TIMEOUT", 5*time.Second),
		HTTPAddr:     getEnv("CHAT_HTTP_ADDR", ""),
		WSPath:       getEnv("CHAT_WS_PATH", "/ws"),
		RedisAddr:    getEnv("CHAT_REDIS_ADDR", ""),
		RedisDB:      getInt("CHAT_REDIS_DB", 0),
		RedisStream:  getEnv("CHAT_REDIS_STREAM", "chat:relay"),
		NodeID:       getEnv("CHAT_NODE_ID", uuid.NewString()),
		LogLevel:     getEnv("CHAT_LOG_LEVEL", "info"),
	}
}

// BindFlags 注册命令行参数，命令行优先于环境变量
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Host, "host", c.Host, "bind address")
	fs.IntVar(&c.Port, "port", c.Port, "tcp port")
	fs.IntVar(&c.Backlog, "backlog", c.Backlog, "pending connection backlog")
	fs.IntVar(&c.MaxConns, "max-conns", c.MaxConns, "max concurrent connections, 0 for unlimited")
	fs.IntVar(&c.MaxLineSize, "max-line", c.MaxLineSize, "max inbound line size in bytes")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", c.WriteTimeout, "per-write deadline, 0 to disable")
	fs.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "ops http address (healthz, metrics, users, websocket)")
	fs.StringVar(&c.WSPath, "ws-path", c.WSPath, "websocket path on the http server")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "redis address for cross-node relay")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "redis db")
	fs.StringVar(&c.RedisStream, "redis-stream", c.RedisStream, "redis stream name")
	fs.StringVar(&c.NodeID, "node", c.NodeID, "node id used by the relay bus")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug|info|warn|error")
}

// TCPAddr host:port
func (c *Config) TCPAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.MaxLineSize <= 0 {
		errs = append(errs, fmt.Errorf("max line size must be positive: %d", c.MaxLineSize))
	}
	if c.HTTPAddr != "" && !strings.HasPrefix(c.WSPath, "/") {
		errs = append(errs, fmt.Errorf("websocket path must start with '/': %q", c.WSPath))
	}
	if c.RedisAddr != "" && c.RedisStream == "" {
		errs = append(errs, errors.New("redis stream name is empty"))
	}
	return errors.Join(errs...)
}
