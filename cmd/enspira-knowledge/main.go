package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/prolix-oc/Enspira-sub000/internal/config"
	dbredis "github.com/prolix-oc/Enspira-sub000/internal/db/redis"
	"github.com/prolix-oc/Enspira-sub000/internal/domain"
	logpkg "github.com/prolix-oc/Enspira-sub000/internal/logger"
	"github.com/prolix-oc/Enspira-sub000/internal/metrics"
	collectionrepo "github.com/prolix-oc/Enspira-sub000/internal/repository/collection"
	"github.com/prolix-oc/Enspira-sub000/internal/repository/embcache"
	recordrepo "github.com/prolix-oc/Enspira-sub000/internal/repository/record"
	searchrepo "github.com/prolix-oc/Enspira-sub000/internal/repository/search"
	chiTransport "github.com/prolix-oc/Enspira-sub000/internal/transport/chi"
	"github.com/prolix-oc/Enspira-sub000/internal/transport/fetch"
	openaitr "github.com/prolix-oc/Enspira-sub000/internal/transport/openai"
	rerankclient "github.com/prolix-oc/Enspira-sub000/internal/transport/rerank"
	"github.com/prolix-oc/Enspira-sub000/internal/transport/websearch"
	augmentuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/augment"
	gatewayuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/gateway"
	healthuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/health"
	ingestuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/ingest"
	rerankuc "github.com/prolix-oc/Enspira-sub000/internal/usecase/rerank"
	retrievaluc "github.com/prolix-oc/Enspira-sub000/internal/usecase/retrieval"
	"github.com/prolix-oc/Enspira-sub000/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting enspira knowledge server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Embedder chain: OpenAI provider -> Redis cache
	provider := openaitr.NewEmbedder(&openaitr.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	var embedder domain.Embedder = embcache.New(provider, store,
		time.Duration(cfg.Embedding.CacheTTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	completer := openaitr.NewCompleter(&openaitr.CompleterConfig{
		APIKey:  cfg.Completion.APIKey,
		BaseURL: cfg.Completion.BaseURL,
		Model:   cfg.Completion.Model,
		Timeout: time.Duration(cfg.Completion.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	collRepo := collectionrepo.New(store)
	recRepo := recordrepo.New(store)
	searchRepo := searchrepo.New(store)

	gateway := gatewayuc.New(collRepo, recRepo, cfg.Embedding.Dimensions, logger)

	oracle := rerankclient.New(rerankclient.Config{
		URL:     cfg.Rerank.URL,
		APIKey:  cfg.Rerank.APIKey,
		Model:   cfg.Rerank.Model,
		Timeout: time.Duration(cfg.Rerank.TimeoutSec) * time.Second,
	})
	reranker := rerankuc.New(&oracleAdapter{inner: oracle}, rerankuc.Config{
		High:               cfg.Rerank.HighThreshold,
		Acceptable:         cfg.Rerank.AcceptableThreshold,
		Low:                cfg.Rerank.LowThreshold,
		Moderate:           cfg.Rerank.ModerateThreshold,
		MinPrimary:         cfg.Rerank.MinPrimary,
		MinHighCount:       cfg.Rerank.MinHighCount,
		BelowAcceptableMax: cfg.Rerank.BelowAcceptableMax,
	}, logger)

	searcher := websearch.New(websearch.Config{
		URL:        cfg.WebSearch.URL,
		APIKey:     cfg.WebSearch.APIKey,
		MaxResults: cfg.WebSearch.MaxResults,
		Timeout:    time.Duration(cfg.WebSearch.TimeoutSec) * time.Second,
	})
	extractor := fetch.New(fetch.Config{
		PerPageTimeout: time.Duration(cfg.Extract.TimeoutSec) * time.Second,
		MaxBodyBytes:   cfg.Extract.MaxBodyBytes,
		UserAgents:     cfg.Extract.UserAgents,
	}, logger)

	augmenter := augmentuc.New(completer, searcher, extractor, gateway, embedder, logger)

	retrieval := retrievaluc.New(embedder, gateway, searchRepo, reranker, augmenter,
		retrievaluc.Config{
			TopK:           cfg.Retrieval.TopK,
			ScoreThreshold: cfg.Retrieval.ScoreThreshold,
		}, logger)

	ingest := ingestuc.New(provider, gateway, logger)
	health := healthuc.New(store, provider)

	server := chiTransport.NewServer(retrieval, ingest, gateway, health, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// oracleAdapter converts the rerank wire response into positional scores.
// An oracle that skips or repeats a document is malformed, not a source of
// silent zero scores.
type oracleAdapter struct {
	inner *rerankclient.Client
}

func (a *oracleAdapter) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	scores, err := a.inner.Rerank(ctx, query, documents)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(documents))
	seen := make([]bool, len(documents))
	for _, s := range scores {
		if seen[s.Index] {
			return nil, fmt.Errorf("rerank result index %d repeated: %w",
				s.Index, domain.ErrUpstreamMalformed)
		}
		seen[s.Index] = true
		out[s.Index] = s.Score
	}
	if len(scores) != len(documents) {
		return nil, fmt.Errorf("rerank scored %d of %d documents: %w",
			len(scores), len(documents), domain.ErrUpstreamMalformed)
	}
	return out, nil
}
