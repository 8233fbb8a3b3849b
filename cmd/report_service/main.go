package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"planform/internal/config"
	"planform/internal/database/kafka"
	"planform/internal/database/minio"
	"planform/internal/database/mysql"
	"planform/internal/database/redis"
	"planform/internal/diagnosis"
	"planform/internal/embedding"
	"planform/internal/expert"
	"planform/internal/llm"
	"planform/internal/models"
	"planform/internal/report/api"
	"planform/internal/report/publisher"
	"planform/internal/report/service"
	"planform/internal/report/status"
	"planform/internal/report/store"
	"planform/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Invalid logger level: %v", err)
	}
	logger.Init(logLevel)
	serviceLogger := logger.New("ReportService", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := mysql.Open(&cfg.Databases.MySQL)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to MySQL")
	}
	defer mysql.Close(db)

	reportDAL := store.NewReportDAL(db)
	if err := reportDAL.Migrate(); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to migrate database schema")
	}
	docDAL := store.NewDocumentDAL(db)

	rdb, err := redis.NewClient(ctx, &cfg.Databases.Redis)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Redis")
	}
	defer rdb.Close()
	tracker := status.NewTracker(rdb, 24*time.Hour)

	kafkaClient, err := kafka.NewClient(&cfg.Databases.Kafka)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Kafka")
	}
	defer kafkaClient.Close()

	genPub := publisher.NewTaskPublisher(kafkaClient.Writer, cfg.Databases.Kafka.GenerateTopic, serviceLogger)
	embedPub := publisher.NewTaskPublisher(kafkaClient.Writer, cfg.Databases.Kafka.EmbedTopic, serviceLogger)

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create LLM client")
	}
	embedder, err := embedding.NewModel(ctx, cfg.Embedding)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create embedding client")
	}

	dataDir, err := filepath.Abs(cfg.Pipeline.DataDir)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to resolve data directory")
	}

	storage, err := minio.NewClient(ctx, &cfg.Databases.MinIO)
	if err != nil {
		// Object storage is a mirror, not the source of truth; keep serving.
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Object storage unavailable, uploads will only be kept locally")
		storage = nil
	}

	reportService := service.New(llmClient, embedder, reportDAL, docDAL, dataDir, serviceLogger)
	matcher := expert.NewMatcher(llmClient, embedder, docDAL, cfg.Expert, serviceLogger)
	diagnoser := diagnosis.NewDiagnoser(llmClient, serviceLogger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	apiHandler := api.NewAPI(reportDAL, docDAL, reportService, matcher, diagnoser, tracker, embedder, storage, genPub, embedPub, dataDir, serviceLogger)
	api.RegisterRoutes(router, apiHandler)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		serviceLogger.Info("Starting HTTP server on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("HTTP server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Server forced to shutdown")
	}

	serviceLogger.Info("Server gracefully stopped")
}
