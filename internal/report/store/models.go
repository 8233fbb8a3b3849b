package store

import (
	"time"

	"gorm.io/datatypes"
)

// Report statuses.
const (
	ReportStatusPending   = "pending"
	ReportStatusRunning   = "running"
	ReportStatusCompleted = "completed"
	ReportStatusFailed    = "failed"
)

// Report is one business plan generation request and its lifecycle state.
type Report struct {
	ID           string `gorm:"primaryKey;size:64"`
	FileName     string `gorm:"size:255;index"`
	BusinessIdea string `gorm:"type:text"`
	CoreValue    string `gorm:"type:text"`
	Status       string `gorm:"size:32"`
	Error        string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Sections []ReportSection `gorm:"foreignKey:ReportID"`
}

// ReportSection is one generated subsection of a report.
type ReportSection struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ReportID       string `gorm:"size:64;index"`
	SectionID      string `gorm:"size:64"`
	SectionName    string `gorm:"size:255"`
	SubsectionID   string `gorm:"size:64;index"`
	SubsectionName string `gorm:"size:255"`
	Order          int
	Content        string `gorm:"type:longtext"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReportDocument is a generated subsection stored with its embedding for
// similarity search across past reports.
type ReportDocument struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	FileName       string `gorm:"size:255;index"`
	SubsectionID   string `gorm:"size:64"`
	SubsectionName string `gorm:"size:255"`
	Content        string         `gorm:"type:longtext"`
	Embedding      datatypes.JSON `gorm:"type:json"` // []float32
	CreatedAt      time.Time
}

// Expert is a candidate advisor matched against reports. Career and Field
// hold free-form string lists.
type Expert struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"`
	Name      string         `gorm:"size:255"`
	Career    datatypes.JSON `gorm:"type:json"` // []string
	Field     datatypes.JSON `gorm:"type:json"` // []string
	Embedding datatypes.JSON `gorm:"type:json"` // []float32
	CreatedAt time.Time
}
