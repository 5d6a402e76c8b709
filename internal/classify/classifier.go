package classify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taxa/internal/cache"
	"taxa/internal/dedup"
	"taxa/internal/llm"
	"taxa/internal/model"
	"taxa/internal/ratelimit"
)

// Classifier is the run-scoped optimization pipeline around the remote
// classification call: deduplication, caching, rate limiting, bounded
// concurrency, and response validation.
type Classifier struct {
	cfg         model.Config
	categories  []string
	resolver    *dedup.Resolver
	store       *cache.Store
	coordinator *Coordinator
	logger      *zap.Logger
}

// New builds a classifier from validated configuration
func New(cfg model.Config, logger *zap.Logger) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	categories := cfg.TargetCategories()

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	var store *cache.Store
	if cfg.Cache.Enabled {
		store, err = cache.NewStore(cfg.Cache.Directory, cfg.Cache.TTLDays, cfg.Cache.Preload, logger)
		if err != nil {
			return nil, fmt.Errorf("open classification cache: %w", err)
		}
	}

	limiter := ratelimit.NewWindow(cfg.RateLimit.RequestsPerMinute)
	validator := NewValidator(categories, cfg.Classification.UnknownCategory, cfg.Validation.StrictMatching)
	tokens := llm.NewTokenCounter(cfg.LLM.Model)

	worker := NewWorker(provider, store, limiter, validator, tokens,
		categories, cfg.Classification.UnknownCategory, cfg.Classification.PromptTemplate,
		cfg.LLM, logger)

	coordinator := NewCoordinator(worker,
		cfg.Classification.BatchSize, cfg.Concurrency.Workers, cfg.RateLimit.BatchDelay, logger)

	logger.Info("classifier initialized",
		zap.String("model", cfg.LLM.Model),
		zap.Int("categories", len(categories)),
		zap.Bool("cache", store != nil))

	return &Classifier{
		cfg:         cfg,
		categories:  categories,
		resolver:    dedup.NewResolver(logger),
		store:       store,
		coordinator: coordinator,
		logger:      logger,
	}, nil
}

// ClassifyTexts classifies a sequence of raw texts: deduplicate, classify
// unique values concurrently, expand back to per-record labels. The output
// always has one label per input.
func (c *Classifier) ClassifyTexts(ctx context.Context, texts []string) ([]string, model.RunStats, error) {
	start := time.Now()
	unknown := c.cfg.Classification.UnknownCategory

	uniques, _ := c.resolver.Prepare(texts)
	if len(uniques) == 0 {
		c.logger.Warn("no valid texts to classify", zap.Int("records", len(texts)))
	}

	uniqueLabels, stats := c.coordinator.Run(ctx, uniques)

	labels, err := c.resolver.Expand(uniqueLabels, len(texts), unknown)
	if err != nil {
		return nil, stats, fmt.Errorf("expand results: %w", err)
	}

	stats.OriginalCount = len(texts)
	stats.UniqueCount = len(uniques)
	if len(texts) > 0 {
		stats.ReductionRatio = float64(len(uniques)) / float64(len(texts))
	}
	if len(uniques) > 0 {
		stats.CacheHitRate = float64(stats.CacheHits) / float64(len(uniques))
	}
	stats.ProcessingTime = time.Since(start)
	stats.Distribution = distribution(labels)

	if c.store != nil {
		if err := c.store.Flush(); err != nil {
			c.logger.Warn("final cache flush failed", zap.Error(err))
		}
	}

	c.logger.Info("classification run complete",
		zap.Int("records", stats.OriginalCount),
		zap.Int("unique", stats.UniqueCount),
		zap.Float64("cost_usd", stats.TotalCost),
		zap.Float64("cache_hit_rate", stats.CacheHitRate),
		zap.Duration("elapsed", stats.ProcessingTime))

	return labels, stats, nil
}

func distribution(labels []string) map[string]int {
	dist := make(map[string]int, 8)
	for _, label := range labels {
		dist[label]++
	}
	return dist
}
