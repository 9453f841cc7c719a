package model

import "time"

// Store is a facility whose uptime is reported. Rows are created the first
// time a store id appears in any feed and are never updated.
type Store struct {
	StoreID   string    `gorm:"primaryKey;size:64"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Store) TableName() string { return "stores" }

// Timezone assigns an IANA timezone to a store.
type Timezone struct {
	StoreID     string `gorm:"primaryKey;size:64"`
	TimezoneStr string `gorm:"column:timezone_str;size:64;not null"`
}

func (Timezone) TableName() string { return "timezones" }
