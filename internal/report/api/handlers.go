package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planform/internal/database/minio"
	"planform/internal/diagnosis"
	"planform/internal/embedding"
	"planform/internal/expert"
	"planform/internal/models"
	"planform/internal/report/consumer"
	"planform/internal/report/publisher"
	"planform/internal/report/service"
	"planform/internal/report/status"
	"planform/internal/report/store"
	"planform/pkg/logger"
)

// API provides the HTTP handlers of the report service.
type API struct {
	reports   *store.ReportDAL
	docs      *store.DocumentDAL
	service   *service.Service
	matcher   *expert.Matcher
	diagnoser *diagnosis.Diagnoser
	tracker   *status.Tracker
	embedder  embedding.Embedding
	storage   *minio.Client
	genPub    *publisher.TaskPublisher
	embedPub  *publisher.TaskPublisher
	dataDir   string
	logger    *logger.Logger
}

// NewAPI creates the handler set.
func NewAPI(reports *store.ReportDAL, docs *store.DocumentDAL, svc *service.Service, matcher *expert.Matcher, diagnoser *diagnosis.Diagnoser, tracker *status.Tracker, embedder embedding.Embedding, storage *minio.Client, genPub, embedPub *publisher.TaskPublisher, dataDir string, logger *logger.Logger) *API {
	return &API{
		reports:   reports,
		docs:      docs,
		service:   svc,
		matcher:   matcher,
		diagnoser: diagnoser,
		tracker:   tracker,
		embedder:  embedder,
		storage:   storage,
		genPub:    genPub,
		embedPub:  embedPub,
		dataDir:   dataDir,
		logger:    logger,
	}
}

// UploadDocumentHandler receives a source PDF, lands it in the document
// folder the pipeline reads from and mirrors it to object storage.
func (a *API) UploadDocumentHandler(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("file_name"))
	if name == "" || strings.ContainsAny(name, "/\\") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file_name"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}

	docDir := filepath.Join(a.dataDir, name)
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create document folder"})
		return
	}
	localPath := filepath.Join(docDir, filepath.Base(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, localPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	if a.storage != nil {
		data, err := os.ReadFile(localPath)
		if err == nil {
			err = a.storage.Put(c.Request.Context(), name+"/"+filepath.Base(fileHeader.Filename), data, "application/pdf")
		}
		if err != nil {
			a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Failed to mirror upload to object storage")
		}
	}

	c.JSON(http.StatusCreated, gin.H{"file_name": name})
}

// CreateReportHandler accepts a generation request and queues it.
func (a *API) CreateReportHandler(c *gin.Context) {
	var payload struct {
		BusinessIdea string `json:"business_idea" binding:"required"`
		CoreValue    string `json:"core_value"`
		FileName     string `json:"file_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	task := models.GenerateReportTask{
		ReportID:     uuid.New().String(),
		FileName:     payload.FileName,
		BusinessIdea: payload.BusinessIdea,
		CoreValue:    payload.CoreValue,
	}

	report := &store.Report{
		ID:           task.ReportID,
		FileName:     task.FileName,
		BusinessIdea: task.BusinessIdea,
		CoreValue:    task.CoreValue,
		Status:       store.ReportStatusPending,
	}
	if err := a.reports.CreateReport(c.Request.Context(), report); err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to create report row")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create report"})
		return
	}

	if err := a.genPub.Publish(c.Request.Context(), task.ReportID, task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue report generation"})
		return
	}
	_ = a.tracker.Set(c.Request.Context(), consumer.KindReport, task.ReportID, models.TaskStatusPending, "")

	c.JSON(http.StatusAccepted, gin.H{"report_id": task.ReportID})
}

// ListReportsHandler returns recent reports.
func (a *API) ListReportsHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	reports, err := a.reports.ListReports(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GetReportHandler returns one report with its sections.
func (a *API) GetReportHandler(c *gin.Context) {
	report, err := a.reports.GetReport(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ReportStatusHandler returns the live task state of a report.
func (a *API) ReportStatusHandler(c *gin.Context) {
	state, err := a.tracker.Get(c.Request.Context(), consumer.KindReport, c.Param("id"))
	if errors.Is(err, status.ErrUnknownTask) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown report task"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read task status"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// RegenerateHandler rewrites one subsection in the requested style.
func (a *API) RegenerateHandler(c *gin.Context) {
	var payload struct {
		Style string `json:"style" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	content, err := a.service.Regenerate(c.Request.Context(), c.Param("id"), c.Param("subsection_id"), payload.Style)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report or subsection not found"})
		return
	}
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Regeneration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Regeneration failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

// LookupHandler answers a drafting question scoped to a subject area.
func (a *API) LookupHandler(c *gin.Context) {
	var payload struct {
		Subject string `json:"subject"`
		Query   string `json:"query" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	answer, err := a.service.Lookup(c.Request.Context(), payload.Subject, payload.Query)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": answer})
}

// SearchReportsHandler ranks stored report subsections against a query.
func (a *API) SearchReportsHandler(c *gin.Context) {
	var payload struct {
		Query string `json:"query" binding:"required"`
		TopK  int    `json:"top_k"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	if payload.TopK <= 0 {
		payload.TopK = 5
	}

	matches, err := a.service.SearchSimilar(c.Request.Context(), payload.Query, payload.TopK)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Similarity search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": matches})
}

// EmbedDocumentHandler queues the indexing pipeline for an uploaded folder.
func (a *API) EmbedDocumentHandler(c *gin.Context) {
	var payload struct {
		FileName string `json:"file_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	task := models.EmbedReportTask{
		EmbedID:  uuid.New().String(),
		FileName: payload.FileName,
	}
	if err := a.embedPub.Publish(c.Request.Context(), task.EmbedID, task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue document embedding"})
		return
	}
	_ = a.tracker.Set(c.Request.Context(), consumer.KindEmbed, task.EmbedID, models.TaskStatusPending, "")

	c.JSON(http.StatusAccepted, gin.H{"embed_id": task.EmbedID})
}

// EmbedStatusHandler returns the live task state of an embedding run.
func (a *API) EmbedStatusHandler(c *gin.Context) {
	state, err := a.tracker.Get(c.Request.Context(), consumer.KindEmbed, c.Param("id"))
	if errors.Is(err, status.ErrUnknownTask) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown embed task"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read task status"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// MatchExpertsHandler recommends experts for a completed report.
func (a *API) MatchExpertsHandler(c *gin.Context) {
	var payload struct {
		ReportID string `json:"report_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	text, err := a.reportText(c, payload.ReportID)
	if err != nil {
		return // response already written
	}

	matches, err := a.matcher.Match(c.Request.Context(), text)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Expert matching failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Expert matching failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"experts": matches})
}

// CreateExpertHandler registers an expert, embedding their profile.
func (a *API) CreateExpertHandler(c *gin.Context) {
	var payload struct {
		Name   string   `json:"name" binding:"required"`
		Career []string `json:"career"`
		Field  []string `json:"field"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	profile := strings.Join(append(append([]string{payload.Name}, payload.Career...), payload.Field...), " ")
	vec, err := a.embedder.Embed(c.Request.Context(), profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to embed expert profile"})
		return
	}

	embRaw, _ := store.EncodeEmbedding(vec)
	careerRaw, _ := json.Marshal(payload.Career)
	fieldRaw, _ := json.Marshal(payload.Field)
	exp := &store.Expert{
		Name:      payload.Name,
		Career:    careerRaw,
		Field:     fieldRaw,
		Embedding: embRaw,
	}
	if err := a.docs.CreateExpert(c.Request.Context(), exp); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create expert"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": exp.ID})
}

// DiagnoseHandler scores a completed report against the rubric.
func (a *API) DiagnoseHandler(c *gin.Context) {
	var payload struct {
		ReportID string `json:"report_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	text, err := a.reportText(c, payload.ReportID)
	if err != nil {
		return // response already written
	}

	result, err := a.diagnoser.Diagnose(c.Request.Context(), text)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Diagnosis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Diagnosis failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// reportText concatenates a report's sections, writing an error response
// when the report cannot be loaded.
func (a *API) reportText(c *gin.Context, reportID string) (string, error) {
	report, err := a.reports.GetReport(c.Request.Context(), reportID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return "", err
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report"})
		return "", err
	}

	var sb strings.Builder
	for _, section := range report.Sections {
		sb.WriteString(section.SubsectionName)
		sb.WriteString("\n")
		sb.WriteString(section.Content)
		sb.WriteString("\n\n")
	}
	if sb.Len() == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Report has no generated content yet"})
		return "", errors.New("report has no content")
	}
	return sb.String(), nil
}
