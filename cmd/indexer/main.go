package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"healthrag/internal/config"
	"healthrag/internal/index"
	"healthrag/internal/ingest"
	"healthrag/internal/llm"
	"healthrag/internal/storage"
)

func main() {
	corpusDir := flag.String("corpus", "./corpus", "directory of source documents (.txt, .md, .csv)")
	chunkSize := flag.Int("chunk-size", 2000, "target chunk size in characters")
	chunkOverlap := flag.Int("chunk-overlap", 200, "overlap between adjacent chunks in characters")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	docs, err := ingest.LoadDir(*corpusDir)
	if err != nil {
		log.Fatalf("Failed to load corpus: %v", err)
	}
	if len(docs) == 0 {
		log.Fatalf("No corpus documents found in %s", *corpusDir)
	}
	slog.Info("Corpus loaded", "dir", *corpusDir, "documents", len(docs))

	ctx := context.Background()
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModel, cfg.VectorSize)
	chunker := ingest.NewChunker(*chunkSize, *chunkOverlap)
	pipeline := ingest.NewPipeline(chunker, embedder, storage.NewChunkRepo(db))

	snapshot, err := pipeline.Run(ctx, docs)
	if err != nil {
		log.Fatalf("Indexing failed: %v", err)
	}

	switch cfg.IndexBackend {
	case "qdrant":
		qdrantIndex, err := index.NewQdrant(cfg.QdrantURL, cfg.QdrantCollection, cfg.VectorSize)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		if err := qdrantIndex.EnsureCollection(ctx); err != nil {
			log.Fatalf("Failed to ensure Qdrant collection: %v", err)
		}
		points := make([]index.Point, len(snapshot.IDs))
		for i, id := range snapshot.IDs {
			points[i] = index.Point{ID: id, Vec: snapshot.Vectors[i]}
		}
		if err := qdrantIndex.Upsert(ctx, points); err != nil {
			log.Fatalf("Failed to upsert vectors: %v", err)
		}
		slog.Info("Qdrant collection populated", "collection", cfg.QdrantCollection, "vectors", len(points))
	default:
		if err := index.SaveSnapshot(cfg.IndexPath, snapshot); err != nil {
			log.Fatalf("Failed to save index snapshot: %v", err)
		}
		slog.Info("Index snapshot written", "path", cfg.IndexPath, "vectors", len(snapshot.IDs))
	}
}
