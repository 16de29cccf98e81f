// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"spark-chat-go/internal/middleware"
	"spark-chat-go/internal/service"
	"spark-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UploadHandler 处理图片附件上传相关的请求。
type UploadHandler struct {
	uploadService service.UploadService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// UploadImage 处理 POST /api/upload：接收一张图片并保存到对象存储。
// 返回的 filePath 即可作为消息附件的引用存入会话。
func (h *UploadHandler) UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 image 文件字段"})
		return
	}

	ownerID := middleware.OwnerID(c)
	filePath, err := h.uploadService.UploadImage(c.Request.Context(), fileHeader, ownerID)
	if err != nil {
		log.Errorf("[UploadHandler] 图片上传失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "图片上传失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"filePath": filePath})
}

// GetImageURL 处理 GET /api/upload/url：为引用路径生成限时访问链接。
func (h *UploadHandler) GetImageURL(c *gin.Context) {
	filePath := c.Query("path")
	if filePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 path 参数"})
		return
	}

	url, err := h.uploadService.GetImageURL(c.Request.Context(), filePath, middleware.OwnerID(c))
	if err != nil {
		if errors.Is(err, service.ErrForbiddenObject) {
			c.JSON(http.StatusForbidden, gin.H{"error": "无权访问该对象"})
			return
		}
		log.Errorf("[UploadHandler] 生成访问链接失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成访问链接失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
