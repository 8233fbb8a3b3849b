package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/kafka-go"

	"planform/internal/database/minio"
	"planform/internal/models"
	"planform/internal/rag/fanout"
	"planform/internal/rag/pipeline"
	"planform/internal/report/service"
	"planform/internal/report/status"
	"planform/pkg/logger"
)

// Status kinds used as Redis namespaces.
const (
	KindReport = "report"
	KindEmbed  = "embed"
)

// Worker executes report generation and document embedding tasks pulled
// from Kafka.
type Worker struct {
	reports      *service.Service
	orchestrator *pipeline.Orchestrator
	outline      *fanout.Outline
	tracker      *status.Tracker
	storage      *minio.Client
	dataDir      string
	log          *logger.Logger
}

// NewWorker wires a worker from its dependencies. storage may be nil, in
// which case documents must already exist under dataDir.
func NewWorker(reports *service.Service, orchestrator *pipeline.Orchestrator, outline *fanout.Outline, tracker *status.Tracker, storage *minio.Client, dataDir string, log *logger.Logger) *Worker {
	return &Worker{
		reports:      reports,
		orchestrator: orchestrator,
		outline:      outline,
		tracker:      tracker,
		storage:      storage,
		dataDir:      dataDir,
		log:          log,
	}
}

// HandleGenerate runs one report generation task.
func (w *Worker) HandleGenerate(ctx context.Context) func(kafka.Message) error {
	return func(msg kafka.Message) error {
		var task models.GenerateReportTask
		if err := json.Unmarshal(msg.Value, &task); err != nil {
			return fmt.Errorf("invalid generate task payload: %w", err)
		}

		w.setStatus(ctx, KindReport, task.ReportID, models.TaskStatusRunning, "")
		if err := w.reports.Generate(ctx, task); err != nil {
			w.setStatus(ctx, KindReport, task.ReportID, models.TaskStatusFailed, err.Error())
			return err
		}
		w.setStatus(ctx, KindReport, task.ReportID, models.TaskStatusCompleted, "")
		return nil
	}
}

// HandleEmbed runs the document pipeline for one uploaded folder.
func (w *Worker) HandleEmbed(ctx context.Context) func(kafka.Message) error {
	return func(msg kafka.Message) error {
		var task models.EmbedReportTask
		if err := json.Unmarshal(msg.Value, &task); err != nil {
			return fmt.Errorf("invalid embed task payload: %w", err)
		}

		w.setStatus(ctx, KindEmbed, task.EmbedID, models.TaskStatusRunning, "")
		docDir := filepath.Join(w.dataDir, task.FileName)
		if err := w.ensureLocalDocument(ctx, task.FileName, docDir); err != nil {
			w.setStatus(ctx, KindEmbed, task.EmbedID, models.TaskStatusFailed, err.Error())
			return err
		}
		if err := w.orchestrator.ProcessDocument(ctx, docDir, w.outline); err != nil {
			w.setStatus(ctx, KindEmbed, task.EmbedID, models.TaskStatusFailed, err.Error())
			return err
		}
		w.setStatus(ctx, KindEmbed, task.EmbedID, models.TaskStatusCompleted, "")
		return nil
	}
}

// ensureLocalDocument pulls the document's PDFs out of object storage when
// the worker does not share a filesystem with the upload endpoint.
func (w *Worker) ensureLocalDocument(ctx context.Context, fileName, docDir string) error {
	if hasPDF(docDir) {
		return nil
	}
	if w.storage == nil {
		return fmt.Errorf("document folder %s is empty and no object storage is configured", docDir)
	}

	keys, err := w.storage.List(ctx, fileName+"/")
	if err != nil {
		return fmt.Errorf("failed to list stored documents for %s: %w", fileName, err)
	}
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return fmt.Errorf("failed to create document folder %s: %w", docDir, err)
	}

	fetched := 0
	for _, key := range keys {
		if !strings.HasSuffix(strings.ToLower(key), ".pdf") {
			continue
		}
		data, err := w.storage.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", key, err)
		}
		local := filepath.Join(docDir, filepath.Base(key))
		if err := os.WriteFile(local, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", local, err)
		}
		fetched++
	}
	if fetched == 0 {
		return fmt.Errorf("no stored PDF found for document %s", fileName)
	}
	w.log.Info(fmt.Sprintf("Fetched %d file(s) from object storage for %s", fetched, fileName))
	return nil
}

func hasPDF(docDir string) bool {
	entries, err := os.ReadDir(docDir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			return true
		}
	}
	return false
}

func (w *Worker) setStatus(ctx context.Context, kind, id, stat, errMsg string) {
	if err := w.tracker.Set(ctx, kind, id, stat, errMsg); err != nil {
		w.log.Warn(fmt.Sprintf("Failed to record %s task status for %s: %v", kind, id, err))
	}
}
