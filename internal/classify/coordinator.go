package classify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"taxa/internal/model"
)

// maxBatchSize caps the scaled batch size
const maxBatchSize = 200

// Coordinator partitions the unique-value sequence into fixed-size batches
// and dispatches them to a bounded worker pool. Each batch is processed
// sequentially inside one goroutine; results land in a pre-sized slice at the
// batch's starting offset, so final ordering matches the unique-value
// sequence regardless of completion order.
type Coordinator struct {
	worker     *Worker
	batchSize  int
	maxWorkers int
	pacer      *rate.Limiter
	logger     *zap.Logger
}

// NewCoordinator creates a batch coordinator. The base batch size is scaled
// up for the deduplicated workload and capped.
func NewCoordinator(worker *Worker, baseBatchSize, maxWorkers int, batchDelay time.Duration, logger *zap.Logger) *Coordinator {
	batchSize := baseBatchSize * 4
	if batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}
	if batchSize < 1 {
		batchSize = 1
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var pacer *rate.Limiter
	if batchDelay > 0 {
		pacer = rate.NewLimiter(rate.Every(batchDelay), 1)
	}

	return &Coordinator{
		worker:     worker,
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
		pacer:      pacer,
		logger:     logger,
	}
}

// Run classifies every unique value and returns per-unique labels in input
// order plus aggregated counters.
func (c *Coordinator) Run(ctx context.Context, uniques []string) ([]string, model.RunStats) {
	stats := model.RunStats{UniqueCount: len(uniques)}
	if len(uniques) == 0 {
		return nil, stats
	}

	labels := make([]string, len(uniques))

	workers := c.maxWorkers
	if len(uniques) < workers {
		workers = len(uniques)
	}

	totalBatches := (len(uniques) + c.batchSize - 1) / c.batchSize
	c.logger.Info("dispatching batches",
		zap.Int("unique_values", len(uniques)),
		zap.Int("batches", totalBatches),
		zap.Int("batch_size", c.batchSize),
		zap.Int("workers", workers))

	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	completed := 0

	for offset := 0; offset < len(uniques); offset += c.batchSize {
		end := offset + c.batchSize
		if end > len(uniques) {
			end = len(uniques)
		}

		wg.Add(1)
		go func(offset int, values []string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if c.pacer != nil {
				_ = c.pacer.Wait(ctx)
			}

			var batchStats model.RunStats
			for i, value := range values {
				result := c.worker.ClassifyValue(ctx, value)
				labels[offset+i] = result.Label

				batchStats.TotalCost += result.Cost
				batchStats.PromptTokens += result.PromptTokens
				batchStats.CompletionTokens += result.CompletionTokens
				if result.Cached {
					batchStats.CacheHits++
				}
				if result.Status == model.StatusSuccess {
					batchStats.APICalls++
				}
				if result.Err != nil {
					batchStats.Errors++
				}
			}

			mu.Lock()
			stats.TotalCost += batchStats.TotalCost
			stats.PromptTokens += batchStats.PromptTokens
			stats.CompletionTokens += batchStats.CompletionTokens
			stats.CacheHits += batchStats.CacheHits
			stats.APICalls += batchStats.APICalls
			stats.Errors += batchStats.Errors
			completed++
			if completed%5 == 0 || completed == totalBatches {
				c.logger.Debug("batch progress",
					zap.Int("completed", completed),
					zap.Int("total", totalBatches))
			}
			mu.Unlock()
		}(offset, uniques[offset:end])
	}

	wg.Wait()

	return labels, stats
}
