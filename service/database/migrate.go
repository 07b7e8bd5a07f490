/*
 * @module service/database/migrate
 * @description 数据库迁移：只迁移服务自有的运行记录表，数据集表由外部ETL拥有
 * @architecture 分层架构 - 数据访问层
 * @documentReference ai_docs/quality_report_design.md
 * @stateFlow 应用启动 -> 自有表迁移 -> 数据集表存在性检查
 * @rules trips/zones表由外部ETL创建和加载，本服务绝不迁移或写入
 * @dependencies gorm.io/gorm, dataquality-service/service/models
 * @refs service/init.go
 */

package database

import (
	"errors"

	"gorm.io/gorm"

	"dataquality-service/service/dataset"
	"dataquality-service/service/models"
)

// AutoMigrate 迁移服务自有的表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ValidationRun{},
		&models.RuleViolationRecord{},
	)
}

// CheckDatasetSchema 检查外部ETL拥有的数据集表是否就位
// 缺表意味着数据集尚未加载或连接到了错误的库，按AccessError处理
func CheckDatasetSchema(db *gorm.DB) error {
	for _, table := range []string{
		models.TripRecord{}.TableName(),
		models.Zone{}.TableName(),
	} {
		if !db.Migrator().HasTable(table) {
			return &dataset.AccessError{
				Op:    "schema_check",
				Table: table,
				Err:   errors.New("数据集表不存在，请确认ETL已完成加载"),
			}
		}
	}
	return nil
}
