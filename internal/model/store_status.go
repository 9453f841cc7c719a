package model

import "time"

// StoreStatus is a single poll of a store (append-only).
type StoreStatus struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	StoreID      string    `gorm:"size:64;not null;uniqueIndex:uq_store_status,priority:1"`
	TimestampUTC time.Time `gorm:"column:timestamp_utc;not null;uniqueIndex:uq_store_status,priority:2;index"`
	Status       bool      `gorm:"not null"` // true = active
}

func (StoreStatus) TableName() string { return "store_status" }
