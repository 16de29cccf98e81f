// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"spark-chat-go/internal/middleware"
	"spark-chat-go/internal/service"
	"spark-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ChatHandler 处理会话相关的 API 请求。
// 响应的状态码与正文形态沿用既有前端约定，不走统一信封。
type ChatHandler struct {
	service service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(service service.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

type createChatRequest struct {
	Text string `json:"text" binding:"required"`
}

type appendChatRequest struct {
	Question *string `json:"question"`
	Answer   string  `json:"answer" binding:"required"`
	Img      *string `json:"img"`
}

// CreateChat 处理 POST /api/chats：以首条提问创建会话。
// 成功时返回 201，正文为新会话 id 的裸字符串。
func (h *ChatHandler) CreateChat(c *gin.Context) {
	ownerID := middleware.OwnerID(c)

	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	chatID, err := h.service.CreateChat(c.Request.Context(), ownerID, req.Text)
	if err != nil {
		log.Error("创建会话失败", err)
		c.String(http.StatusInternalServerError, "Error creating chat!")
		return
	}

	c.String(http.StatusCreated, chatID)
}

// AppendChat 处理 PUT /api/chats/:id：追加一组问答。
// 返回 updateOne 风格的确认；matchedCount 为 0 表示会话不存在
// 或不属于调用者，与持久化故障（500）是两回事。
func (h *ChatHandler) AppendChat(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	chatID := c.Param("id")

	var req appendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answer is required"})
		return
	}

	ack, err := h.service.AppendConversation(c.Request.Context(), chatID, ownerID, req.Question, req.Img, req.Answer)
	if err != nil {
		log.Error("追加会话失败", err)
		c.String(http.StatusInternalServerError, "Error adding conversation!")
		return
	}

	c.JSON(http.StatusOK, ack)
}

// GetChat 处理 GET /api/chats/:id：读取完整会话。
// 未命中（不存在或不属于调用者）时返回 200 与 JSON null，
// 两种情况对调用者不可区分。
func (h *ChatHandler) GetChat(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	chatID := c.Param("id")

	chat, err := h.service.GetChat(c.Request.Context(), chatID, ownerID)
	if err != nil {
		log.Error("读取会话失败", err)
		c.String(http.StatusInternalServerError, "Error fetching chat!")
		return
	}

	if chat == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// ListUserChats 处理 GET /api/userchats：返回调用者的会话目录。
// 没有任何会话时返回空数组，永远不是 null。
func (h *ChatHandler) ListUserChats(c *gin.Context) {
	ownerID := middleware.OwnerID(c)

	summaries, err := h.service.ListSummaries(c.Request.Context(), ownerID)
	if err != nil {
		log.Error("读取会话目录失败", err)
		c.String(http.StatusInternalServerError, "Error fetching userchats!")
		return
	}

	c.JSON(http.StatusOK, summaries)
}
