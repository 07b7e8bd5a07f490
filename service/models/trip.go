/*
 * @module service/models/trip
 * @description 出租车行程与区域查找表模型，映射外部ETL加载的trips/zones两张数据表
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/taxi_dataset_schema.md
 * @stateFlow 外部ETL加载 -> 校验运行期间只读快照
 * @rules 数据表结构由外部ETL拥有，本服务只读，不做任何迁移和写入
 * @dependencies gorm.io/gorm, time
 * @refs service/dataset, service/quality
 */

package models

import "time"

// TripRecord 一条出租车行程记录
// 可空字段使用指针类型，完整性规则依赖NULL语义
type TripRecord struct {
	TripID               int64      `json:"trip_id" gorm:"column:trip_id;primaryKey;autoIncrement"`
	VendorID             *int       `json:"vendor_id" gorm:"column:vendor_id"`
	PickupDatetime       *time.Time `json:"tpep_pickup_datetime" gorm:"column:tpep_pickup_datetime"`
	DropoffDatetime      *time.Time `json:"tpep_dropoff_datetime" gorm:"column:tpep_dropoff_datetime"`
	PassengerCount       *int       `json:"passenger_count" gorm:"column:passenger_count"`
	TripDistance         *float64   `json:"trip_distance" gorm:"column:trip_distance"`
	RatecodeID           *int       `json:"ratecode_id" gorm:"column:ratecode_id"`
	StoreAndFwdFlag      *string    `json:"store_and_fwd_flag" gorm:"column:store_and_fwd_flag;size:1"`
	PULocationID         *int       `json:"pu_location_id" gorm:"column:pu_location_id"`
	DOLocationID         *int       `json:"do_location_id" gorm:"column:do_location_id"`
	PaymentType          *int       `json:"payment_type" gorm:"column:payment_type"`
	FareAmount           *float64   `json:"fare_amount" gorm:"column:fare_amount"`
	Extra                *float64   `json:"extra" gorm:"column:extra"`
	MtaTax               *float64   `json:"mta_tax" gorm:"column:mta_tax"`
	TipAmount            *float64   `json:"tip_amount" gorm:"column:tip_amount"`
	TollsAmount          *float64   `json:"tolls_amount" gorm:"column:tolls_amount"`
	ImprovementSurcharge *float64   `json:"improvement_surcharge" gorm:"column:improvement_surcharge"`
	TotalAmount          *float64   `json:"total_amount" gorm:"column:total_amount"`
	CongestionSurcharge  *float64   `json:"congestion_surcharge" gorm:"column:congestion_surcharge"`

	// ETL派生字段，一致性规则负责验证其与原始字段的推导关系
	TripDurationMinutes *int       `json:"trip_duration_minutes" gorm:"column:trip_duration_minutes"`
	CostPerMile         *float64   `json:"cost_per_mile" gorm:"column:cost_per_mile"`
	PickupHour          *int       `json:"pickup_hour" gorm:"column:pickup_hour"`
	PickupDate          *time.Time `json:"pickup_date" gorm:"column:pickup_date"`
}

// TableName 指定表名
func (TripRecord) TableName() string {
	return "trips"
}

// Zone 区域查找表记录
type Zone struct {
	LocationID  int    `json:"location_id" gorm:"column:location_id;primaryKey"`
	Borough     string `json:"borough" gorm:"column:borough;size:50"`
	ZoneName    string `json:"zone_name" gorm:"column:zone_name;size:100"`
	ServiceZone string `json:"service_zone" gorm:"column:service_zone;size:50"`
}

// TableName 指定表名
func (Zone) TableName() string {
	return "zones"
}
