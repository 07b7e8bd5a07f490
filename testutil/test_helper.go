/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"math"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dataquality-service/service/models"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 内存 SQLite 每个连接是独立库，限制连接池为单连接避免并发访问时丢表
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	// 测试库里数据集表和服务自有表一起迁移
	err = db.AutoMigrate(
		&models.TripRecord{},
		&models.Zone{},
		&models.ValidationRun{},
		&models.RuleViolationRecord{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"rule_violation_records",
		"validation_runs",
		"trips",
		"zones",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// ZoneOption 区域选项函数类型
type ZoneOption func(*models.Zone)

// CreateZone 创建测试区域
func (f *TestDataFactory) CreateZone(locationID int, opts ...ZoneOption) *models.Zone {
	zone := &models.Zone{
		LocationID:  locationID,
		Borough:     "Manhattan",
		ZoneName:    fmt.Sprintf("Test Zone %d", locationID),
		ServiceZone: "Yellow Zone",
	}

	for _, opt := range opts {
		opt(zone)
	}

	if err := f.DB.Create(zone).Error; err != nil {
		panic(fmt.Sprintf("failed to create test zone: %v", err))
	}

	return zone
}

// WithBorough 设置区域所属行政区
func WithBorough(borough string) ZoneOption {
	return func(z *models.Zone) {
		z.Borough = borough
	}
}

// WithZoneName 设置区域名称
func WithZoneName(name string) ZoneOption {
	return func(z *models.Zone) {
		z.ZoneName = name
	}
}

// TripOption 行程选项函数类型
type TripOption func(*models.TripRecord)

// CreateTrip 创建一条内部自洽的测试行程
// 默认值满足全部内置规则：派生字段按和ETL相同的口径从原始字段推导
func (f *TestDataFactory) CreateTrip(opts ...TripOption) *models.TripRecord {
	pickup := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	dropoff := pickup.Add(25 * time.Minute)

	trip := &models.TripRecord{
		VendorID:        IntPtr(1),
		PickupDatetime:  &pickup,
		DropoffDatetime: &dropoff,
		PassengerCount:  IntPtr(1),
		TripDistance:    Float64Ptr(5.0),
		RatecodeID:      IntPtr(1),
		PULocationID:    IntPtr(100),
		DOLocationID:    IntPtr(200),
		PaymentType:     IntPtr(1),
		FareAmount:      Float64Ptr(20.0),
		TipAmount:       Float64Ptr(3.0),
		TotalAmount:     Float64Ptr(23.0),
	}

	for _, opt := range opts {
		opt(trip)
	}

	fillDerivedFields(trip)

	if err := f.DB.Create(trip).Error; err != nil {
		panic(fmt.Sprintf("failed to create test trip: %v", err))
	}

	return trip
}

// fillDerivedFields 按ETL口径补齐派生字段，选项已显式设置的保持不动
func fillDerivedFields(trip *models.TripRecord) {
	if trip.TripDurationMinutes == nil && trip.PickupDatetime != nil && trip.DropoffDatetime != nil {
		minutes := int(trip.DropoffDatetime.Sub(*trip.PickupDatetime).Minutes())
		trip.TripDurationMinutes = &minutes
	}
	if trip.CostPerMile == nil && trip.FareAmount != nil && trip.TripDistance != nil && *trip.TripDistance > 0 {
		cpm := math.Round(*trip.FareAmount / *trip.TripDistance * 100) / 100
		trip.CostPerMile = &cpm
	}
	if trip.PickupHour == nil && trip.PickupDatetime != nil {
		hour := trip.PickupDatetime.Hour()
		trip.PickupHour = &hour
	}
	if trip.PickupDate == nil && trip.PickupDatetime != nil {
		date := time.Date(trip.PickupDatetime.Year(), trip.PickupDatetime.Month(), trip.PickupDatetime.Day(), 0, 0, 0, 0, time.UTC)
		trip.PickupDate = &date
	}
}

// WithPickupDropoff 设置上下车时间，派生字段随之重算
func WithPickupDropoff(pickup, dropoff time.Time) TripOption {
	return func(t *models.TripRecord) {
		t.PickupDatetime = &pickup
		t.DropoffDatetime = &dropoff
	}
}

// WithFare 设置票价
func WithFare(fare float64) TripOption {
	return func(t *models.TripRecord) {
		t.FareAmount = &fare
	}
}

// WithDistance 设置里程
func WithDistance(distance float64) TripOption {
	return func(t *models.TripRecord) {
		t.TripDistance = &distance
	}
}

// WithLocations 设置上下车区域ID
func WithLocations(pu, do int) TripOption {
	return func(t *models.TripRecord) {
		t.PULocationID = &pu
		t.DOLocationID = &do
	}
}

// WithPaymentType 设置支付方式
func WithPaymentType(paymentType int) TripOption {
	return func(t *models.TripRecord) {
		t.PaymentType = &paymentType
	}
}

// WithTip 设置小费
func WithTip(tip float64) TripOption {
	return func(t *models.TripRecord) {
		t.TipAmount = &tip
	}
}

// WithNullFare 清空票价
func WithNullFare() TripOption {
	return func(t *models.TripRecord) {
		t.FareAmount = nil
	}
}

// WithNullTip 清空小费
func WithNullTip() TripOption {
	return func(t *models.TripRecord) {
		t.TipAmount = nil
	}
}

// WithNullPickup 清空上车时间
func WithNullPickup() TripOption {
	return func(t *models.TripRecord) {
		t.PickupDatetime = nil
	}
}

// WithDurationMinutes 显式设置行程时长，绕过派生字段重算
func WithDurationMinutes(minutes int) TripOption {
	return func(t *models.TripRecord) {
		t.TripDurationMinutes = &minutes
	}
}

// WithCostPerMile 显式设置每英里成本，绕过派生字段重算
func WithCostPerMile(cpm float64) TripOption {
	return func(t *models.TripRecord) {
		t.CostPerMile = &cpm
	}
}

// WithPickupHour 显式设置上车小时，绕过派生字段重算
func WithPickupHour(hour int) TripOption {
	return func(t *models.TripRecord) {
		t.PickupHour = &hour
	}
}

// IntPtr 整型指针辅助函数
func IntPtr(v int) *int {
	return &v
}

// Float64Ptr 浮点指针辅助函数
func Float64Ptr(v float64) *float64 {
	return &v
}
