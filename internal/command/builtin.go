package command

import (
	"strings"
)

// NewBuiltinRegistry 启动时构建一次的命令表，之后只读
func NewBuiltinRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterBuiltins 注册内置命令：help echo users nick quit
func RegisterBuiltins(r *Registry) error {
	builtins := []*Command{
		{
			Name:  "help",
			Usage: "/help",
			Help:  "Show this help message",
			Handler: func(ctx *Context) error {
				// 每行单独成帧，线上格式不允许内嵌换行
				ctx.Reply("Available commands:")
				for _, c := range r.List() {
					ctx.Reply(c.Usage + " - " + c.Help)
				}
				return nil
			},
		},
		{
			Name:  "echo",
			Usage: "/echo <message>",
			Help:  "Echo a message back to you",
			Handler: func(ctx *Context) error {
				if ctx.Args == "" {
					return &UsageError{Usage: "/echo <message>"}
				}
				ctx.Reply("Echo: " + ctx.Args)
				return nil
			},
		},
		{
			Name:  "users",
			Usage: "/users",
			Help:  "List connected users",
			Handler: func(ctx *Context) error {
				ctx.Reply("Connected users: " + strings.Join(ctx.Hub.ListNames(), ", "))
				return nil
			},
		},
		{
			Name:  "nick",
			Usage: "/nick <name>",
			Help:  "Change your nickname",
			Handler: func(ctx *Context) error {
				if ctx.Args == "" {
					return &UsageError{Usage: "/nick <new_nickname>"}
				}
				old, ok := ctx.Hub.Rename(ctx.Client.ID, ctx.Args)
				if !ok {
					return nil
				}
				ctx.Hub.Broadcast(old+" is now known as "+ctx.Args, ctx.Client.ID)
				return nil
			},
		},
		{
			Name:  "quit",
			Usage: "/quit",
			Help:  "Disconnect from server",
			Handler: func(ctx *Context) error {
				ctx.Reply("Goodbye!")
				ctx.Hub.Remove(ctx.Client.ID)
				return nil
			},
		},
	}
	for _, c := range builtins {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}
