package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ReportDAL provides data access for reports and their sections.
type ReportDAL struct {
	db *gorm.DB
}

// NewReportDAL creates a new ReportDAL.
func NewReportDAL(db *gorm.DB) *ReportDAL {
	return &ReportDAL{db: db}
}

// Migrate creates or updates the backing tables.
func (dal *ReportDAL) Migrate() error {
	return dal.db.AutoMigrate(&Report{}, &ReportSection{}, &ReportDocument{}, &Expert{})
}

// CreateReport inserts a new report row.
func (dal *ReportDAL) CreateReport(ctx context.Context, report *Report) error {
	return dal.db.WithContext(ctx).Create(report).Error
}

// UpdateStatus transitions a report's status, recording the failure message
// when one is given.
func (dal *ReportDAL) UpdateStatus(ctx context.Context, reportID, status, errMsg string) error {
	result := dal.db.WithContext(ctx).Model(&Report{}).
		Where("id = ?", reportID).
		Updates(map[string]interface{}{"status": status, "error": errMsg})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveSections replaces a report's sections.
func (dal *ReportDAL) SaveSections(ctx context.Context, reportID string, sections []ReportSection) error {
	return dal.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", reportID).Delete(&ReportSection{}).Error; err != nil {
			return err
		}
		if len(sections) == 0 {
			return nil
		}
		return tx.Create(&sections).Error
	})
}

// GetReport loads a report with its sections in outline order.
func (dal *ReportDAL) GetReport(ctx context.Context, reportID string) (*Report, error) {
	var report Report
	err := dal.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("`order` ASC") }).
		First(&report, "id = ?", reportID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetSection loads one subsection of a report.
func (dal *ReportDAL) GetSection(ctx context.Context, reportID, subsectionID string) (*ReportSection, error) {
	var section ReportSection
	err := dal.db.WithContext(ctx).
		First(&section, "report_id = ? AND subsection_id = ?", reportID, subsectionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// UpdateSectionContent overwrites the content of one subsection.
func (dal *ReportDAL) UpdateSectionContent(ctx context.Context, reportID, subsectionID, content string) error {
	result := dal.db.WithContext(ctx).Model(&ReportSection{}).
		Where("report_id = ? AND subsection_id = ?", reportID, subsectionID).
		Update("content", content)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReports returns reports newest first.
func (dal *ReportDAL) ListReports(ctx context.Context, limit int) ([]*Report, error) {
	var reports []*Report
	q := dal.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
