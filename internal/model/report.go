package model

import "time"

// ReportStatus is the lifecycle state of a report job.
type ReportStatus string

const (
	ReportQueued    ReportStatus = "queued"
	ReportRunning   ReportStatus = "running"
	ReportCompleted ReportStatus = "completed"
	ReportFailed    ReportStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s ReportStatus) Terminal() bool {
	return s == ReportCompleted || s == ReportFailed
}

// Report tracks one uptime report generation.
type Report struct {
	ReportID       string       `gorm:"primaryKey;size:36"`
	Status         ReportStatus `gorm:"size:16;not null;index"`
	CreatedAt      time.Time    `gorm:"not null"`
	StartedAt      *time.Time
	CompletedAt    *time.Time
	ReportFilePath string `gorm:"size:512"`
	ErrorMessage   string `gorm:"type:text"`
}

func (Report) TableName() string { return "reports" }
