package store

import "time"

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a caller's conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// turnRow is how a Turn is persisted by the SQL backend.
type turnRow struct {
	ID        string
	Address   string
	Seq       int64
	Role      Role
	Text      string
	CreatedAt time.Time
}
