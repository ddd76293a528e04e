package command

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hongjun500/chat-relay/internal/chat"
	"github.com/hongjun500/chat-relay/internal/observe"
	"github.com/hongjun500/chat-relay/pkg/logger"
)

const UnknownCommandNotice = "Unknown command. Type /help for available commands."

type Context struct {
	Hub    *chat.Hub
	Client *chat.Client
	Args   string // 命令名之后的原始文本，可能为空
}

// Reply 只发给命令发送者
func (ctx *Context) Reply(text string) { _ = ctx.Hub.Send(ctx.Client, text) }

type HandlerFunc func(ctx *Context) error

type Command struct {
	Name    string
	Usage   string // 形如 /echo <message>
	Help    string
	Handler HandlerFunc
}

// UsageError 缺少必需参数，Dispatch 会把用法提示回给发送者
type UsageError struct{ Usage string }

func (e *UsageError) Error() string { return "Usage: " + e.Usage }

type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Command
	list   []*Command
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Command),
		list:   make([]*Command, 0),
	}
}

func (r *Registry) Register(cmd *Command) (err error) {
	if cmd == nil {
		return errors.New("command is nil")
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command %s has no handler", cmd.Name)
	}
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	if name == "" {
		return errors.New("command name is empty")
	}
	if strings.ContainsAny(name, "/ ") {
		return fmt.Errorf("command name must not contain '/' or spaces:%s", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("command %s already registered", name)
	}
	cmd.Name = name
	r.byName[name] = cmd
	r.list = append(r.list, cmd)
	return nil
}

func (r *Registry) Get(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.byName[strings.ToLower(name)]
	return cmd, ok
}

func (r *Registry) List() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, len(r.list))
	copy(out, r.list)
	return out
}

// Split 把去掉 '/' 的命令行拆成小写命令名和剩余参数
func Split(line string) (name, args string) {
	name, args, _ = strings.Cut(line, " ")
	return strings.ToLower(name), args
}

// Dispatch 执行一条命令，line 不含前导 '/'。
// 未知命令与用法错误只通知发送者，不视为错误返回。
func (r *Registry) Dispatch(hub *chat.Hub, c *chat.Client, line string) {
	name, args := Split(line)
	cmd, ok := r.Get(name)
	if !ok {
		observe.IncCommandError("not_found")
		_ = hub.Send(c, UnknownCommandNotice)
		return
	}

	observe.IncCommand(cmd.Name)
	ctx := &Context{Hub: hub, Client: c, Args: args}
	err := cmd.Handler(ctx)
	var usage *UsageError
	switch {
	case err == nil:
	case errors.As(err, &usage):
		observe.IncCommandError("usage")
		ctx.Reply(usage.Error())
	default:
		observe.IncCommandError("handler")
		logger.L().Sugar().Warnw("command_failed", "command", cmd.Name, "client", c.ID, "err", err)
	}
}
