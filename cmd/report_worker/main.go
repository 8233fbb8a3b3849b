package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"planform/internal/config"
	"planform/internal/database/kafka"
	"planform/internal/database/milvus"
	"planform/internal/database/minio"
	"planform/internal/database/mysql"
	"planform/internal/database/redis"
	"planform/internal/embedding"
	"planform/internal/llm"
	"planform/internal/models"
	"planform/internal/rag/extract"
	"planform/internal/rag/fanout"
	"planform/internal/rag/index"
	"planform/internal/rag/interfaces"
	"planform/internal/rag/pipeline"
	"planform/internal/rag/storages/contentstore"
	"planform/internal/rag/storages/vectorstore"
	"planform/internal/rag/summarize"
	"planform/internal/report/consumer"
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
	workerLogger := logger.New("ReportWorker", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := mysql.Open(&cfg.Databases.MySQL)
	if err != nil {
		workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to MySQL")
	}
	defer mysql.Close(db)

	reportDAL := store.NewReportDAL(db)
	if err := reportDAL.Migrate(); err != nil {
		workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to migrate database schema")
	}
	docDAL := store.NewDocumentDAL(db)

	rdb, err := redis.NewClient(ctx, &cfg.Databases.Redis)
	if err != nil {
		workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Redis")
	}
	defer rdb.Close()
	tracker := status.NewTracker(rdb, 24*time.Hour)

	kafkaClient, err := kafka.NewClient(&cfg.Databases.Kafka)
	if err != nil {
		workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Kafka")
	}
	defer kafkaClient.Close()

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create LLM client")
	}
	visionClient := llmClient
	if cfg.LLM.VisionModel != "" {
		visionCfg := cfg.LLM
		visionCfg.OpenAI.Model = cfg.LLM.VisionModel
		visionCfg.Gemini.Model = cfg.LLM.VisionModel
		visionClient, err = llm.NewClient(ctx, visionCfg)
		if err != nil {
			workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create vision LLM client")
		}
	}

	embedder, err := embedding.NewModel(ctx, cfg.Embedding)
	if err != nil {
		workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create embedding client")
	}

	var milvusClient *milvus.Client
	if cfg.Pipeline.VectorStore == "milvus" {
		milvusClient, err = milvus.NewClient(ctx, &cfg.Databases.Milvus)
		if err != nil {
			workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Milvus")
		}
		defer milvusClient.Close()
	}

	extractor := extract.NewPDFExtractor(
		extract.NewPDFTextSource(),
		extract.NewFitzRenderer(cfg.Pipeline.RenderDPI, workerLogger),
		extract.NewTesseractOCR(cfg.Pipeline.OCRLanguages),
		workerLogger,
	)
	summarizer := summarize.NewLLMSummarizer(llmClient, visionClient, cfg.Pipeline.SummaryThreshold, cfg.Pipeline.MaxConcurrency, workerLogger)

	factory := func(fctx context.Context, collection string) (pipeline.Indexer, error) {
		var vs interfaces.VectorStore
		switch cfg.Pipeline.VectorStore {
		case "milvus":
			ms, err := vectorstore.NewMilvusStore(fctx, milvusClient, collection, workerLogger)
			if err != nil {
				return nil, err
			}
			vs = ms
		default:
			vs = vectorstore.NewMemoryStore()
		}

		var cs interfaces.ContentStore
		switch cfg.Pipeline.ContentStore {
		case "redis":
			cs = contentstore.NewRedisStore(rdb, collection)
		default:
			cs = contentstore.NewMemoryStore()
		}

		return index.NewDualIndex(embedder, vs, cs, workerLogger), nil
	}

	orchestrator := pipeline.NewOrchestrator(extractor, summarizer, factory, cfg.Pipeline.TopK, cfg.Pipeline.OverfetchMultiplier, workerLogger)

	outline, err := fanout.LoadOutline(cfg.Pipeline.OutlinePath)
	if err != nil {
		workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to load outline")
	}

	dataDir, err := filepath.Abs(cfg.Pipeline.DataDir)
	if err != nil {
		workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to resolve data directory")
	}

	storage, err := minio.NewClient(ctx, &cfg.Databases.MinIO)
	if err != nil {
		workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Object storage unavailable, documents must already exist locally")
		storage = nil
	}

	reportService := service.New(llmClient, embedder, reportDAL, docDAL, dataDir, workerLogger)
	worker := consumer.NewWorker(reportService, orchestrator, outline, tracker, storage, dataDir, workerLogger)

	generateConsumer := consumer.NewTaskConsumer(kafkaClient.NewReader(cfg.Databases.Kafka.GenerateTopic), workerLogger)
	embedConsumer := consumer.NewTaskConsumer(kafkaClient.NewReader(cfg.Databases.Kafka.EmbedTopic), workerLogger)

	generateConsumer.Start(ctx, worker.HandleGenerate(ctx))
	embedConsumer.Start(ctx, worker.HandleEmbed(ctx))
	workerLogger.Info("Report worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	workerLogger.Info("Shutting down worker...")

	cancel()
	if err := generateConsumer.Close(); err != nil {
		workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing generate consumer")
	}
	if err := embedConsumer.Close(); err != nil {
		workerLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing embed consumer")
	}

	workerLogger.Info("Worker gracefully stopped")
}
