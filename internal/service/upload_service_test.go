package service

import (
	"context"
	"mime/multipart"
	"net/textproto"
	"testing"

	"spark-chat-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnsObject(t *testing.T) {
	assert.True(t, ownsObject("chat-images/user-1/abc.png", "user-1"))

	// 别人前缀下的对象一律拒绝
	assert.False(t, ownsObject("chat-images/user-2/abc.png", "user-1"))
	// 前缀必须完整匹配，不允许靠相似的所有者标识混过去
	assert.False(t, ownsObject("chat-images/user-10/abc.png", "user-1"))
	// 前缀之外的路径与裸前缀都无效
	assert.False(t, ownsObject("other-bucket/user-1/abc.png", "user-1"))
	assert.False(t, ownsObject("chat-images/user-1/", "user-1"))
	// 对象名里不允许再有路径段
	assert.False(t, ownsObject("chat-images/user-1/../user-2/abc.png", "user-1"))
	assert.False(t, ownsObject("chat-images/user-1/abc.png", ""))
}

func TestGetImageURLRejectsForeignPath(t *testing.T) {
	svc := NewUploadService(config.MinIOConfig{BucketName: "chat-images"}, config.UploadConfig{})

	_, err := svc.GetImageURL(context.Background(), "chat-images/user-2/abc.png", "user-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbiddenObject)
}

func TestUploadImageRejectsBadExtension(t *testing.T) {
	svc := NewUploadService(config.MinIOConfig{}, config.UploadConfig{})

	header := &multipart.FileHeader{
		Filename: "payload.exe",
		Header:   textproto.MIMEHeader{},
	}
	_, err := svc.UploadImage(context.Background(), header, "user-1")
	assert.Error(t, err)
}

func TestUploadImageRejectsOversize(t *testing.T) {
	svc := NewUploadService(config.MinIOConfig{}, config.UploadConfig{MaxSizeBytes: 1024})

	header := &multipart.FileHeader{
		Filename: "big.png",
		Size:     2048,
		Header:   textproto.MIMEHeader{},
	}
	_, err := svc.UploadImage(context.Background(), header, "user-1")
	assert.Error(t, err)
}
