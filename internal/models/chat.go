package models

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role    Role      `json:"type"`
	Content string    `json:"content"`
	Time    time.Time `json:"time,omitempty"`
}
