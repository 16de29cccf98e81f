// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"spark-chat-go/internal/config"
	"spark-chat-go/pkg/log"
	"spark-chat-go/pkg/storage"

	"github.com/google/uuid"
)

// 图片附件允许的扩展名。
var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// 预签名访问链接的有效期。
const presignedURLExpiry = time.Hour

// ErrForbiddenObject 表示引用路径不在调用者自己的前缀下。
var ErrForbiddenObject = errors.New("无权访问该对象")

// UploadService 接口定义了图片附件上传的业务操作。
// 会话核心只保存这里返回的引用路径，永远不保存二进制内容。
type UploadService interface {
	// UploadImage 校验并保存一张图片，返回可存入消息的引用路径。
	// 对象放在调用者自己的前缀下。
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, ownerID string) (string, error)
	// GetImageURL 为引用路径生成一个限时的预签名访问链接。
	// 只接受调用者自己前缀下的路径。
	GetImageURL(ctx context.Context, filePath, ownerID string) (string, error)
}

type uploadService struct {
	minioCfg  config.MinIOConfig
	uploadCfg config.UploadConfig
}

// NewUploadService 创建一个新的 UploadService 实例。
func NewUploadService(minioCfg config.MinIOConfig, uploadCfg config.UploadConfig) UploadService {
	return &uploadService{
		minioCfg:  minioCfg,
		uploadCfg: uploadCfg,
	}
}

// UploadImage 保存一张图片附件到对象存储。
// 对象名用 uuid 重新生成，并按所有者分前缀存放。
func (s *uploadService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, ownerID string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedImageExtensions[ext] {
		return "", fmt.Errorf("不支持的图片类型: %s", ext)
	}
	if s.uploadCfg.MaxSizeBytes > 0 && fileHeader.Size > s.uploadCfg.MaxSizeBytes {
		return "", fmt.Errorf("图片大小超过限制: %d > %d", fileHeader.Size, s.uploadCfg.MaxSizeBytes)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer file.Close()

	objectName := fmt.Sprintf("chat-images/%s/%s%s", ownerID, uuid.NewString(), ext)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := storage.PutObject(ctx, s.minioCfg.BucketName, objectName, file, fileHeader.Size, contentType); err != nil {
		return "", fmt.Errorf("保存图片失败: %w", err)
	}

	log.Infof("[UploadImage] 图片已保存: %s, owner: %s", objectName, ownerID)
	return objectName, nil
}

// GetImageURL 生成预签名访问链接。
// 路径落在别人前缀下时拒绝，不区分对象是否真的存在。
func (s *uploadService) GetImageURL(ctx context.Context, filePath, ownerID string) (string, error) {
	if !ownsObject(filePath, ownerID) {
		return "", ErrForbiddenObject
	}
	url, err := storage.GetPresignedURL(s.minioCfg.BucketName, filePath, presignedURLExpiry)
	if err != nil {
		return "", fmt.Errorf("生成访问链接失败: %w", err)
	}
	return url, nil
}

// ownsObject 判断对象路径是否落在所有者自己的前缀下。
// 前缀后必须正好是一个对象名，不允许再有路径段。
func ownsObject(filePath, ownerID string) bool {
	if ownerID == "" {
		return false
	}
	prefix := "chat-images/" + ownerID + "/"
	if !strings.HasPrefix(filePath, prefix) {
		return false
	}
	name := strings.TrimPrefix(filePath, prefix)
	return name != "" && !strings.Contains(name, "/")
}
