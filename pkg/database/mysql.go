package database

import (
	"strings"
	"time"

	"spark-chat-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 数据库连接
func InitMySQL(dsn string) {
	var err error
	DB, err = gorm.Open(mysql.Open(ensureFoundRows(dsn)), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	log.Info("MySQL database connected successfully")
}

// ensureFoundRows 保证 DSN 携带 clientFoundRows=true。
// 追加路径以 RowsAffected 判定会话是否命中，这要求 RowsAffected
// 表示匹配行数；驱动默认只统计发生变化的行，同值更新会被计为 0，
// 导致存在的会话被误判为未命中。
func ensureFoundRows(dsn string) string {
	if strings.Contains(strings.ToLower(dsn), "clientfoundrows=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "clientFoundRows=true"
}
