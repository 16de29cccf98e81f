// Package pipeline 定义了消息索引的核心流程。
package pipeline

import (
	"context"
	"fmt"

	"spark-chat-go/internal/config"
	"spark-chat-go/internal/model"
	"spark-chat-go/pkg/es"
	"spark-chat-go/pkg/log"
	"spark-chat-go/pkg/tasks"
)

// Indexer 把追加成功的会话消息写入 Elasticsearch。
// 它消费 Kafka 上的 TurnIndexTask；索引落后只影响检索的新鲜度，
// 不影响会话本身的读写。
type Indexer struct {
	esCfg config.ElasticsearchConfig
}

// NewIndexer 创建一个新的 Indexer 实例。
func NewIndexer(esCfg config.ElasticsearchConfig) *Indexer {
	return &Indexer{esCfg: esCfg}
}

// Process 是索引任务的主函数，满足 kafka.TaskProcessor 接口。
// 文档 id 由 chatId 和消息主键拼成，任务重放时幂等覆盖。
func (p *Indexer) Process(ctx context.Context, task tasks.TurnIndexTask) error {
	doc := model.EsTurnDocument{
		DocID:       fmt.Sprintf("%s-%d", task.ChatID, task.TurnID),
		ChatID:      task.ChatID,
		OwnerID:     task.OwnerID,
		Role:        task.Role,
		TextContent: task.Text,
		CreatedAt:   task.CreatedAt,
	}

	if err := es.IndexTurnDocument(ctx, p.esCfg.IndexName, doc); err != nil {
		log.Errorf("[Indexer] 索引消息失败, docId: %s, error: %v", doc.DocID, err)
		return err
	}

	log.Infof("[Indexer] 消息已索引, docId: %s", doc.DocID)
	return nil
}
