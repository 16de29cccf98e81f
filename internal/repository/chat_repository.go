// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spark-chat-go/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository 定义了会话持久化的操作接口。
// 所有读写都以 (会话 id, 所有者) 复合键界定范围：查不到和不属于
// 调用者走的是同一条路径，对外不可区分。
type ChatRepository interface {
	// CreateChat 在一个事务内创建会话（含首条 user 消息）、
	// 确保所有者目录存在并追加一条摘要。
	CreateChat(ctx context.Context, ownerID, text, title string) (*model.Chat, error)
	// AppendTurns 将若干消息按给定顺序追加到会话历史。
	// 返回的 matched 为 0 表示会话不存在或不属于该所有者。
	AppendTurns(ctx context.Context, chatID, ownerID string, turns []model.Turn) (matched, modified int64, err error)
	// GetChat 返回复合键命中的完整会话；未命中返回 (nil, nil)。
	GetChat(ctx context.Context, chatID, ownerID string) (*model.Chat, error)
	// ListSummaries 返回所有者目录中按创建顺序排列的摘要；
	// 目录不存在时返回空切片，不是错误。
	ListSummaries(ctx context.Context, ownerID string) ([]model.ChatSummary, error)
}

type gormChatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建一个新的 ChatRepository 实例。
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &gormChatRepository{db: db}
}

// CreateChat 创建会话并登记目录。四次写入在同一个事务内完成，
// 目录写入失败时会话写入一并回滚，不会留下无目录条目的孤儿会话。
// 目录的存在性由 owner_id 唯一索引上的 ON CONFLICT DO NOTHING 保证，
// 并发首建只会落下一条目录记录。
func (r *gormChatRepository) CreateChat(ctx context.Context, ownerID, text, title string) (*model.Chat, error) {
	chat := &model.Chat{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
	}
	firstTurn := &model.Turn{
		Role: model.RoleUser,
		Text: text,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return fmt.Errorf("创建会话记录失败: %w", err)
		}

		firstTurn.ChatID = chat.ID
		if err := tx.Create(firstTurn).Error; err != nil {
			return fmt.Errorf("写入首条消息失败: %w", err)
		}

		// create-if-absent：冲突时不做任何更新，随后按 owner_id 取回已有目录
		idx := model.ChatIndex{OwnerID: ownerID}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			DoNothing: true,
		}).Create(&idx).Error; err != nil {
			return fmt.Errorf("创建会话目录失败: %w", err)
		}
		if idx.ID == 0 {
			if err := tx.Where("owner_id = ?", ownerID).First(&idx).Error; err != nil {
				return fmt.Errorf("读取会话目录失败: %w", err)
			}
		}

		summary := &model.ChatSummary{
			IndexID: idx.ID,
			ChatID:  chat.ID,
			Title:   title,
		}
		if err := tx.Create(summary).Error; err != nil {
			return fmt.Errorf("追加会话摘要失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	chat.History = []model.Turn{*firstTurn}
	return chat, nil
}

// AppendTurns 追加消息。先以复合键条件更新 updated_at 取得命中数，
// 命中为 0 时直接返回，不写入任何消息；同一次调用内的消息在事务中
// 按传入顺序插入，自增主键保证历史读取时的先后关系。
// 这里的 RowsAffected 必须是匹配行数而非变化行数，否则同一毫秒内
// 的两次追加会把第二次误判为未命中；MySQL 连接由 InitMySQL 补上
// clientFoundRows=true 来保证这一点。
func (r *gormChatRepository) AppendTurns(ctx context.Context, chatID, ownerID string, turns []model.Turn) (int64, int64, error) {
	if len(turns) == 0 {
		return 0, 0, errors.New("没有可追加的消息")
	}

	var matched int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Chat{}).
			Where("id = ? AND owner_id = ?", chatID, ownerID).
			Update("updated_at", time.Now())
		if res.Error != nil {
			return fmt.Errorf("定位会话失败: %w", res.Error)
		}
		matched = res.RowsAffected
		if matched == 0 {
			return nil
		}

		for i := range turns {
			turns[i].ChatID = chatID
		}
		if err := tx.Create(&turns).Error; err != nil {
			return fmt.Errorf("追加消息失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return matched, matched, nil
}

// GetChat 按复合键读取完整会话，历史按追加顺序预加载。
func (r *gormChatRepository) GetChat(ctx context.Context, chatID, ownerID string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("turns.id ASC")
		}).
		Where("id = ? AND owner_id = ?", chatID, ownerID).
		First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话失败: %w", err)
	}
	return &chat, nil
}

// ListSummaries 读取所有者目录中的摘要列表。
func (r *gormChatRepository) ListSummaries(ctx context.Context, ownerID string) ([]model.ChatSummary, error) {
	var idx model.ChatIndex
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&idx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []model.ChatSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话目录失败: %w", err)
	}

	var summaries []model.ChatSummary
	if err := r.db.WithContext(ctx).
		Where("index_id = ?", idx.ID).
		Order("id ASC").
		Find(&summaries).Error; err != nil {
		return nil, fmt.Errorf("读取会话摘要失败: %w", err)
	}
	return summaries, nil
}
