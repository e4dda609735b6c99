package db

import (
	"database/sql"
	"fmt"

	"github.com/jacl-coder/TicTacTwo-Server/config"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
	_ "github.com/lib/pq"
)

var (
	// DB 全局数据库连接实例，未启用对局归档时为 nil
	DB *sql.DB
)

// InitPostgres 初始化PostgreSQL连接并确保表结构存在
func InitPostgres(cfg config.DatabaseConfig) error {
	var err error

	DB, err = sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 测试连接
	if err = DB.Ping(); err != nil {
		DB.Close()
		DB = nil
		return fmt.Errorf("数据库Ping失败: %w", err)
	}

	if err = InitAllTables(); err != nil {
		return fmt.Errorf("初始化对局归档表失败: %w", err)
	}

	logger.Server.Info("成功连接到PostgreSQL数据库 %s:%d/%s", cfg.Host, cfg.Port, cfg.DBName)
	return nil
}

// Close 关闭数据库连接
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
		logger.Server.Info("数据库连接已关闭")
	}
}
