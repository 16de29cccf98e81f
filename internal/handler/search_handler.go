package handler

import (
	"net/http"
	"strconv"

	"spark-chat-go/internal/middleware"
	"spark-chat-go/internal/service"
	"spark-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了会话检索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// SearchTurns 是处理会话全文检索请求的 Gin 处理函数。
// 检索范围固定为调用者自己的消息历史。
func (h *SearchHandler) SearchTurns(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的查询参数"})
		return
	}
	topKStr := c.DefaultQuery("topK", "10")
	topK, err := strconv.Atoi(topKStr)
	if err != nil || topK <= 0 {
		topK = 10
	}

	ownerID := middleware.OwnerID(c)
	results, err := h.searchService.SearchTurns(c.Request.Context(), ownerID, query, topK)
	if err != nil {
		log.Errorf("[SearchHandler] 检索服务返回错误, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "搜索失败"})
		return
	}

	log.Infof("[SearchHandler] 检索成功, query: '%s', 返回 %d 条结果", query, len(results))
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": results, "message": "success"})
}
