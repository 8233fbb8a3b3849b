package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"planform/internal/config"
	"planform/internal/database/milvus"
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
	"planform/pkg/logger"
)

// One-shot batch driver: index every document folder under the data
// directory and fan retrieval out over the outline, then exit.
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
	pipelineLogger := logger.New("Pipeline", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		pipelineLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create LLM client")
	}
	visionClient := llmClient
	if cfg.LLM.VisionModel != "" {
		visionCfg := cfg.LLM
		visionCfg.OpenAI.Model = cfg.LLM.VisionModel
		visionCfg.Gemini.Model = cfg.LLM.VisionModel
		visionClient, err = llm.NewClient(ctx, visionCfg)
		if err != nil {
			pipelineLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create vision LLM client")
		}
	}
	embedder, err := embedding.NewModel(ctx, cfg.Embedding)
	if err != nil {
		pipelineLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create embedding client")
	}

	var milvusClient *milvus.Client
	if cfg.Pipeline.VectorStore == "milvus" {
		milvusClient, err = milvus.NewClient(ctx, &cfg.Databases.Milvus)
		if err != nil {
			pipelineLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to Milvus")
		}
		defer milvusClient.Close()
	}

	factory := func(fctx context.Context, collection string) (pipeline.Indexer, error) {
		var vs interfaces.VectorStore
		switch cfg.Pipeline.VectorStore {
		case "milvus":
			ms, err := vectorstore.NewMilvusStore(fctx, milvusClient, collection, pipelineLogger)
			if err != nil {
				return nil, err
			}
			vs = ms
		default:
			vs = vectorstore.NewMemoryStore()
		}

		var cs interfaces.ContentStore
		if cfg.Pipeline.ContentStore == "redis" {
			rdb, err := redis.NewClient(fctx, &cfg.Databases.Redis)
			if err != nil {
				return nil, err
			}
			cs = contentstore.NewRedisStore(rdb, collection)
		} else {
			cs = contentstore.NewMemoryStore()
		}

		return index.NewDualIndex(embedder, vs, cs, pipelineLogger), nil
	}

	extractor := extract.NewPDFExtractor(
		extract.NewPDFTextSource(),
		extract.NewFitzRenderer(cfg.Pipeline.RenderDPI, pipelineLogger),
		extract.NewTesseractOCR(cfg.Pipeline.OCRLanguages),
		pipelineLogger,
	)
	summarizer := summarize.NewLLMSummarizer(llmClient, visionClient, cfg.Pipeline.SummaryThreshold, cfg.Pipeline.MaxConcurrency, pipelineLogger)

	outline, err := fanout.LoadOutline(cfg.Pipeline.OutlinePath)
	if err != nil {
		pipelineLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to load outline")
	}

	orchestrator := pipeline.NewOrchestrator(extractor, summarizer, factory, cfg.Pipeline.TopK, cfg.Pipeline.OverfetchMultiplier, pipelineLogger)
	result, err := orchestrator.RunBatch(ctx, cfg.Pipeline.DataDir, outline)
	if err != nil {
		pipelineLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Batch run aborted")
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}
