// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spark-chat-go/internal/config"
	"spark-chat-go/internal/handler"
	"spark-chat-go/internal/middleware"
	"spark-chat-go/internal/model"
	"spark-chat-go/internal/pipeline"
	"spark-chat-go/internal/repository"
	"spark-chat-go/internal/service"
	"spark-chat-go/pkg/database"
	"spark-chat-go/pkg/es"
	"spark-chat-go/pkg/kafka"
	"spark-chat-go/pkg/llm"
	"spark-chat-go/pkg/log"
	"spark-chat-go/pkg/storage"
	"spark-chat-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、MinIO、ES 与 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 建表
	if err := database.DB.AutoMigrate(
		&model.Chat{},
		&model.Turn{},
		&model.ChatIndex{},
		&model.ChatSummary{},
	); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	// 5. 初始化 Repository 与 Service (依赖注入)
	verifier := token.NewVerifier(cfg.JWT.Secret)
	chatRepo := repository.NewChatRepository(database.DB)
	summaryCache := repository.NewSummaryCache(database.RDB)
	llmClient := llm.NewClient(cfg.LLM)
	chatService := service.NewChatService(chatRepo, summaryCache, llmClient, kafka.ProduceTurnTask)
	searchService := service.NewSearchService(es.ESClient, cfg.Elasticsearch.IndexName)
	uploadService := service.NewUploadService(cfg.MinIO, cfg.Upload)

	// 6. 启动后台 Kafka 消费者，把追加的消息写入 ES
	indexer := pipeline.NewIndexer(cfg.Elasticsearch)
	go kafka.StartConsumer(cfg.Kafka, indexer)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "it works")
	})

	chatHandler := handler.NewChatHandler(chatService)
	searchHandler := handler.NewSearchHandler(searchService)
	uploadHandler := handler.NewUploadHandler(uploadService)
	streamHandler := handler.NewStreamHandler(chatService, verifier)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(verifier))
	{
		api.POST("/chats", chatHandler.CreateChat)
		api.PUT("/chats/:id", chatHandler.AppendChat)
		api.GET("/chats/:id", chatHandler.GetChat)
		api.GET("/userchats", chatHandler.ListUserChats)

		api.GET("/search", searchHandler.SearchTurns)

		api.POST("/upload", uploadHandler.UploadImage)
		api.GET("/upload/url", uploadHandler.GetImageURL)
	}

	// WebSocket 握手无法携带授权头，令牌走查询参数，在处理器内验证
	r.GET("/ws/chats/:id", streamHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
