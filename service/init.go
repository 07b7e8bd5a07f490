/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、策略加载和校验服务装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/validation_policy.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 数据库连接与策略加载失败时直接终止进程，不提供降级服务
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs main.go
 */

package service

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dataquality-service/service/config"
	"dataquality-service/service/database"
)

var (
	DB                      *gorm.DB
	GlobalValidationService *ValidationService
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := config.GetEnvWithDefault("DB_HOST", "localhost")
		port := config.GetEnvWithDefault("DB_PORT", "5432")
		user := config.GetEnvWithDefault("DB_USER", "postgres")
		password := config.GetEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := config.GetEnvWithDefault("DB_NAME", "nyc_taxi")
		sslmode := config.GetEnvWithDefault("DB_SSLMODE", "disable")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// runMigrations 运行数据库迁移，只迁移服务自有表
func runMigrations() {
	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")
}

// initServices 初始化校验服务
func initServices() {
	policy, err := config.LoadPolicy()
	if err != nil {
		log.Fatalf("校验策略加载失败: %v", err)
	}

	GlobalValidationService, err = NewValidationService(DB, policy)
	if err != nil {
		log.Fatalf("校验服务初始化失败: %v", err)
	}
	log.Println("服务初始化完成")
}
