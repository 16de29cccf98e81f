// Package model 包含了应用的数据模型定义。
package model

import "time"

// SearchResponseDTO 定义了返回给前端的搜索结果结构。
type SearchResponseDTO struct {
	ChatID      string  `json:"chatId"`
	Role        string  `json:"role"`
	TextContent string  `json:"textContent"`
	Score       float64 `json:"score"`
}

// EsTurnDocument 代表存储在 Elasticsearch 中的消息文档结构。
// 每条被追加的消息对应一个文档，owner_id 用于检索时的归属过滤。
type EsTurnDocument struct {
	DocID       string    `json:"doc_id"` // 唯一标识：chatId + 消息主键
	ChatID      string    `json:"chat_id"`
	OwnerID     string    `json:"owner_id"`
	Role        string    `json:"role"`
	TextContent string    `json:"text_content"`
	CreatedAt   time.Time `json:"created_at"`
}
