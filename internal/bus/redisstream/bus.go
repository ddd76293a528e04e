package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// streamMaxLen 流只做转发不做存档，近似裁剪到这个长度
const streamMaxLen = 1000

// Bus 基于 Redis Streams 的跨节点聊天转发。
// 每个节点使用独立的消费组，因此所有节点都能收到全部消息。
type Bus struct {
	cli    *redis.Client
	stream string
	group  string
	node   string
}

type Message struct {
	Node string    `json:"node"`
	When time.Time `json:"when"`
	From string    `json:"from"`
	Text string    `json:"text"`
}

func New(addr string, db int, stream, node string) *Bus {
	cli := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	return &Bus{cli: cli, stream: stream, group: groupName(stream, node), node: node}
}

func groupName(stream, node string) string { return stream + ":" + node }

func (b *Bus) Node() string { return b.node }

func (b *Bus) Ping(ctx context.Context) error { return b.cli.Ping(ctx).Err() }

func (b *Bus) Close() error { return b.cli.Close() }

// EnsureGroup 创建流和本节点的消费组，已存在时忽略
func (b *Bus) EnsureGroup(ctx context.Context) error {
	err := b.cli.XGroupCreateMkStream(ctx, b.stream, b.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s: %w", b.group, err)
	}
	return nil
}

func (b *Bus) Publish(ctx context.Context, m *Message) error {
	if m.Node == "" {
		m.Node = b.node
	}
	payload, err := encodeMessage(m)
	if err != nil {
		return err
	}
	return b.cli.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{"data": payload},
	}).Err()
}

type Handler func(ctx context.Context, m *Message) error

// Consume blocks and delivers messages from other nodes to handler; cancel ctx to stop
func (b *Bus) Consume(ctx context.Context, handler Handler) error {
	for {
		res, err := b.cli.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.node,
			Streams:  []string{b.stream, ">"},
			Count:    100,
			Block:    5 * time.Second,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// transient errors: back off a little and continue
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		for _, str := range res {
			for _, xmsg := range str.Messages {
				if m, err := decodeMessage(xmsg.Values); err == nil && m.Node != b.node {
					_ = handler(ctx, m)
				}
				// Acknowledge
				_ = b.cli.XAck(ctx, b.stream, b.group, xmsg.ID).Err()
			}
		}
	}
}

func encodeMessage(m *Message) (string, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func decodeMessage(values map[string]any) (*Message, error) {
	raw, ok := values["data"].(string)
	if !ok {
		return nil, errors.New("redisstream: missing data field")
	}
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("redisstream: decode: %w", err)
	}
	return &m, nil
}
