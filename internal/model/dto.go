// Package model 包含了应用的数据模型定义。
package model

import "time"

// 本文件定义对外的响应结构。前端沿用 Mongo 时代的字段名
// （_id、history[].parts[0].text），这里保持完全一致。

// TurnPartDTO 是一条消息的内容片段。
type TurnPartDTO struct {
	Text string `json:"text"`
}

// TurnDTO 是消息在响应中的形态。
type TurnDTO struct {
	Role  string        `json:"role"`
	Parts []TurnPartDTO `json:"parts"`
	Img   string        `json:"img,omitempty"`
}

// ChatDTO 是完整会话在响应中的形态。
type ChatDTO struct {
	ID        string    `json:"_id"`
	OwnerID   string    `json:"userId"`
	History   []TurnDTO `json:"history"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatSummaryDTO 是侧边栏目录条目在响应中的形态。
type ChatSummaryDTO struct {
	ChatID string `json:"_id"`
	Title  string `json:"title"`
}

// UpdateAckDTO 对应追加操作的确认结果。matchedCount 为 0 表示
// 会话不存在或不属于调用者，调用方应与持久化故障区分对待。
type UpdateAckDTO struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// ToDTO 将持久化模型转换为响应结构。
func (c *Chat) ToDTO() *ChatDTO {
	history := make([]TurnDTO, 0, len(c.History))
	for _, t := range c.History {
		dto := TurnDTO{
			Role:  t.Role,
			Parts: []TurnPartDTO{{Text: t.Text}},
		}
		if t.Img != nil {
			dto.Img = *t.Img
		}
		history = append(history, dto)
	}
	return &ChatDTO{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		History:   history,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
