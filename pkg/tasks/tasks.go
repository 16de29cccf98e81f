// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// TurnIndexTask represents one appended chat turn waiting to be indexed.
type TurnIndexTask struct {
	ChatID    string    `json:"chat_id"`
	OwnerID   string    `json:"owner_id"`
	TurnID    uint      `json:"turn_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
