package models

// GenerateReportTask is the payload published to the report generation topic.
// The worker builds a full business plan from the indexed document identified
// by FileName.
type GenerateReportTask struct {
	ReportID     string `json:"report_id"`
	FileName     string `json:"file_name"`
	BusinessIdea string `json:"business_idea"`
	CoreValue    string `json:"core_value"`
}

// EmbedReportTask is the payload published to the document embedding topic.
// The worker runs the extraction and indexing pipeline for a single uploaded
// document folder.
type EmbedReportTask struct {
	EmbedID  string `json:"embed_id"`
	FileName string `json:"file_name"`
}

// Task status values stored in Redis while a worker is processing.
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)
