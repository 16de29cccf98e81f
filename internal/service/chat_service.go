// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"spark-chat-go/internal/model"
	"spark-chat-go/internal/repository"
	"spark-chat-go/pkg/llm"
	"spark-chat-go/pkg/log"
	"spark-chat-go/pkg/tasks"

	"github.com/gorilla/websocket"
)

// 标题取首条提问的前 40 个字符，创建时定格，之后不再重算。
const titleMaxRunes = 40

// ErrChatNotFound 表示会话不存在或不属于调用者，两种情况不区分。
var ErrChatNotFound = errors.New("会话不存在")

// TurnPublisher 将追加成功的消息发往索引管道，nil 时跳过。
// 发布是 fire-and-forget：失败只记日志，永不影响会话操作本身。
type TurnPublisher func(task tasks.TurnIndexTask) error

// ChatService 定义了会话业务逻辑的接口。
type ChatService interface {
	// CreateChat 以首条提问创建新会话并登记目录，返回新会话 id。
	CreateChat(ctx context.Context, ownerID, text string) (string, error)
	// AppendConversation 将一组问答追加到会话历史。
	// question 为空时只追加 model 消息；img 只挂在 user 消息上。
	AppendConversation(ctx context.Context, chatID, ownerID string, question, img *string, answer string) (*model.UpdateAckDTO, error)
	// GetChat 返回完整会话；不存在或不属于调用者时返回 (nil, nil)。
	GetChat(ctx context.Context, chatID, ownerID string) (*model.ChatDTO, error)
	// ListSummaries 返回调用者的会话目录，永远返回非 nil 切片。
	ListSummaries(ctx context.Context, ownerID string) ([]model.ChatSummaryDTO, error)
	// StreamAnswer 基于会话历史向模型提问，把流式分块写给 ws，
	// 并在流结束后以最终累积文本走同一条追加路径落库。
	StreamAnswer(ctx context.Context, chatID, ownerID, question string, img *string, ws *websocket.Conn) error
}

type chatService struct {
	repo      repository.ChatRepository
	cache     repository.SummaryCache
	llmClient llm.Client
	publish   TurnPublisher
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(repo repository.ChatRepository, cache repository.SummaryCache, llmClient llm.Client, publish TurnPublisher) ChatService {
	return &chatService{
		repo:      repo,
		cache:     cache,
		llmClient: llmClient,
		publish:   publish,
	}
}

// deriveTitle 截取提问的前 40 个字符作为标题。
// 按 rune 截取，不会把多字节字符切成半个。
func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxRunes {
		return text
	}
	return string(runes[:titleMaxRunes])
}

// CreateChat 创建会话。创建与目录登记的原子性由仓库层事务保证。
func (s *chatService) CreateChat(ctx context.Context, ownerID, text string) (string, error) {
	chat, err := s.repo.CreateChat(ctx, ownerID, text, deriveTitle(text))
	if err != nil {
		return "", err
	}

	// 目录变了，侧边栏缓存作废
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ownerID); err != nil {
			log.Warnf("删除摘要缓存失败: %v", err)
		}
	}

	s.publishTurns(chat.ID, ownerID, chat.History)
	return chat.ID, nil
}

// AppendConversation 追加一组问答。
func (s *chatService) AppendConversation(ctx context.Context, chatID, ownerID string, question, img *string, answer string) (*model.UpdateAckDTO, error) {
	turns := make([]model.Turn, 0, 2)
	if question != nil && *question != "" {
		turns = append(turns, model.Turn{
			Role: model.RoleUser,
			Text: *question,
			Img:  img,
		})
	}
	turns = append(turns, model.Turn{
		Role: model.RoleModel,
		Text: answer,
	})

	matched, modified, err := s.repo.AppendTurns(ctx, chatID, ownerID, turns)
	if err != nil {
		return nil, err
	}
	if matched > 0 {
		s.publishTurns(chatID, ownerID, turns)
	}

	return &model.UpdateAckDTO{
		Acknowledged:  true,
		MatchedCount:  matched,
		ModifiedCount: modified,
	}, nil
}

// GetChat 读取完整会话。
func (s *chatService) GetChat(ctx context.Context, chatID, ownerID string) (*model.ChatDTO, error) {
	chat, err := s.repo.GetChat(ctx, chatID, ownerID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, nil
	}
	return chat.ToDTO(), nil
}

// ListSummaries 读取会话目录，优先走缓存。
func (s *chatService) ListSummaries(ctx context.Context, ownerID string) ([]model.ChatSummaryDTO, error) {
	if s.cache != nil {
		if cached, hit, err := s.cache.Get(ctx, ownerID); err != nil {
			log.Warnf("读取摘要缓存失败: %v", err)
		} else if hit {
			return cached, nil
		}
	}

	summaries, err := s.repo.ListSummaries(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	dtos := make([]model.ChatSummaryDTO, 0, len(summaries))
	for _, sum := range summaries {
		dtos = append(dtos, model.ChatSummaryDTO{ChatID: sum.ChatID, Title: sum.Title})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, ownerID, dtos); err != nil {
			log.Warnf("写入摘要缓存失败: %v", err)
		}
	}
	return dtos, nil
}

// StreamAnswer 服务端流式问答：加载历史、调用模型、转发分块、落库。
func (s *chatService) StreamAnswer(ctx context.Context, chatID, ownerID, question string, img *string, ws *websocket.Conn) error {
	chat, err := s.repo.GetChat(ctx, chatID, ownerID)
	if err != nil {
		return err
	}
	if chat == nil {
		return ErrChatNotFound
	}

	messages := make([]llm.Message, 0, len(chat.History)+1)
	for _, t := range chat.History {
		messages = append(messages, llm.Message{Role: t.Role, Content: t.Text})
	}
	messages = append(messages, llm.Message{Role: model.RoleUser, Content: question})

	// 拦截 websocket writer 以捕获完整答案，并包装为 JSON 分块
	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: ws, writer: answerBuilder}

	if err := s.llmClient.StreamChatMessages(ctx, messages, nil, interceptor); err != nil {
		return err
	}

	sendCompletion(ws)
	fullAnswer := answerBuilder.String()
	if len(fullAnswer) > 0 {
		// 使用后台上下文：即使原始请求被取消，也要保存已生成的答案
		q := question
		if _, err := s.AppendConversation(context.Background(), chatID, ownerID, &q, img, fullAnswer); err != nil {
			// 只记录错误，不返回给客户端，因为流式响应已经成功
			log.Errorf("保存会话历史失败: %v", err)
		}
	}
	return nil
}

// publishTurns 把消息发往索引管道。
func (s *chatService) publishTurns(chatID, ownerID string, turns []model.Turn) {
	if s.publish == nil {
		return
	}
	for _, t := range turns {
		task := tasks.TurnIndexTask{
			ChatID:    chatID,
			OwnerID:   ownerID,
			TurnID:    t.ID,
			Role:      t.Role,
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
		}
		if err := s.publish(task); err != nil {
			log.Warnf("发布消息索引任务失败: chatId=%s, turnId=%d, err=%v", chatID, t.ID, err)
		}
	}
}

// wsWriterInterceptor 是对 websocket.Conn 的封装，用于捕获写入的消息。
type wsWriterInterceptor struct {
	conn   *websocket.Conn
	writer *strings.Builder
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	w.writer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(ws *websocket.Conn) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"timestamp": time.Now().UnixMilli(),
	}
	b, _ := json.Marshal(notif)
	_ = ws.WriteMessage(websocket.TextMessage, b)
}
