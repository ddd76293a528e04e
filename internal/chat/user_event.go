package chat

import "time"

// UserEvent 表示用户加入 / 离开 / 改名
type UserEvent struct {
	When time.Time
	ID   string
	Name string
	Kind EventType
}

func (e *UserEvent) Type() EventType { return e.Kind }

func (e *UserEvent) Time() time.Time { return e.When }
