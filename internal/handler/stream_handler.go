// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"spark-chat-go/internal/service"
	"spark-chat-go/pkg/log"
	"spark-chat-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// StreamHandler 负责处理 WebSocket 流式问答连接。
// 浏览器无法在 WebSocket 握手时携带请求头，身份令牌改走查询参数。
type StreamHandler struct {
	chatService service.ChatService
	verifier    *token.Verifier
}

// NewStreamHandler 创建一个新的 StreamHandler。
func NewStreamHandler(chatService service.ChatService, verifier *token.Verifier) *StreamHandler {
	return &StreamHandler{
		chatService: chatService,
		verifier:    verifier,
	}
}

// streamRequest 是客户端在连接上发送的一次提问。
type streamRequest struct {
	Question string  `json:"question"`
	Img      *string `json:"img,omitempty"`
}

// Handle 处理一个传入的 WebSocket 连接。
// 路径参数是会话 id，流结束后最终答案通过追加协议落库。
func (h *StreamHandler) Handle(c *gin.Context) {
	claims, err := h.verifier.VerifyToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效或已过期的 token"})
		return
	}
	ownerID := claims.Subject
	chatID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立, chatId: %s", chatID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var req streamRequest
		if err := json.Unmarshal(message, &req); err != nil || req.Question == "" {
			errResp := map[string]string{"error": "无效的提问"}
			b, _ := json.Marshal(errResp)
			_ = conn.WriteMessage(websocket.TextMessage, b)
			continue
		}

		err = h.chatService.StreamAnswer(c.Request.Context(), chatID, ownerID, req.Question, req.Img, conn)
		if err != nil {
			if errors.Is(err, service.ErrChatNotFound) {
				errResp := map[string]string{"error": "会话不存在"}
				b, _ := json.Marshal(errResp)
				_ = conn.WriteMessage(websocket.TextMessage, b)
				break
			}
			log.Errorf("处理流式响应失败: %v", err)
			errResp := map[string]string{"error": "AI服务暂时不可用，请稍后重试"}
			b, _ := json.Marshal(errResp)
			_ = conn.WriteMessage(websocket.TextMessage, b)
			break
		}
	}
}
