// Package model 包含了应用的数据模型定义。
package model

import "time"

// Turn 的 role 取值。
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Chat 代表一次完整的会话：所有者 + 有序的消息历史。
// 历史是只追加的，插入顺序即时间顺序，永不重排或删除。
type Chat struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID   string    `gorm:"type:varchar(64);index;not null" json:"userId"`
	History   []Turn    `gorm:"foreignKey:ChatID;references:ID" json:"history"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Chat) TableName() string {
	return "chats"
}

// Turn 代表会话中的一条消息。自增主键同时充当追加顺序。
type Turn struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    string    `gorm:"type:varchar(36);index;not null" json:"chatId"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Img       *string   `gorm:"type:varchar(255)" json:"img,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Turn) TableName() string {
	return "turns"
}

// ChatIndex 代表某个所有者的会话目录，每个所有者至多一条记录。
// owner_id 上的唯一索引保证并发首建时不会出现第二条目录。
type ChatIndex struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"userId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ChatIndex) TableName() string {
	return "chat_indexes"
}

// ChatSummary 是目录中的一个条目：会话 id + 创建时定格的标题。
// 标题取首条提问的前 40 个字符，之后的追加不会重算。
type ChatSummary struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	IndexID   uint      `gorm:"index;not null" json:"indexId"`
	ChatID    string    `gorm:"type:varchar(36);not null" json:"chatId"`
	Title     string    `gorm:"type:varchar(160);not null" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (ChatSummary) TableName() string {
	return "chat_summaries"
}
