package model

import (
	"time"

	"gorm.io/datatypes"
)

// AgentEvent is one journaled lifecycle event of an AI agent.
type AgentEvent struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID   string         `gorm:"index:idx_event_trace;size:36" json:"trace_id"`
	Room      string         `gorm:"index:idx_event_room;size:64;not null" json:"room"`
	AgentID   string         `gorm:"index:idx_event_agent;size:36;not null" json:"agent_id"`
	Kind      string         `gorm:"size:16" json:"kind"`
	Action    string         `gorm:"size:32;not null" json:"action"`
	State     string         `gorm:"size:32" json:"state"`
	Detail    datatypes.JSON `json:"detail"`
	CreatedAt time.Time      `gorm:"index:idx_event_created;autoCreateTime:milli" json:"created_at"`
}
