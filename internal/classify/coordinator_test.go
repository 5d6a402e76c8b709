package classify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"taxa/internal/llm"
	"taxa/internal/model"
	"taxa/internal/ratelimit"
)

func newCoordinatorForCategories(provider *fakeProvider, categories []string, baseBatch, workers int) *Coordinator {
	validator := NewValidator(categories, unknown, false)
	llmCfg := model.LLMConfig{Model: "gpt-4o-mini", MaxRetries: 2, BackoffFactor: 2}

	w := NewWorker(provider, nil, ratelimit.NewWindow(100000), validator, fixedTokens{},
		categories, unknown, testTemplate, llmCfg, zap.NewNop())
	w.sleep = func(context.Context, time.Duration) error { return nil }

	return NewCoordinator(w, baseBatch, workers, 0, zap.NewNop())
}

func TestCoordinator_BatchSizeScaling(t *testing.T) {
	c := newCoordinatorForCategories(echoProvider(), testCategories, 10, 4)
	if c.batchSize != 40 {
		t.Errorf("expected batch size 40, got %d", c.batchSize)
	}

	capped := newCoordinatorForCategories(echoProvider(), testCategories, 100, 4)
	if capped.batchSize != maxBatchSize {
		t.Errorf("expected batch size capped at %d, got %d", maxBatchSize, capped.batchSize)
	}
}

func TestCoordinator_OrderingIndependentOfCompletion(t *testing.T) {
	// Many small batches across many workers; each value classifies to
	// itself, so the output must equal the input order.
	const n = 97
	categories := make([]string, 0, n+1)
	values := make([]string, n)
	for i := range values {
		values[i] = fmt.Sprintf("Category %02d", i)
		categories = append(categories, values[i])
	}
	categories = append(categories, unknown)

	c := newCoordinatorForCategories(echoProvider(), categories, 1, 8)

	labels, stats := c.Run(context.Background(), values)
	if len(labels) != n {
		t.Fatalf("expected %d labels, got %d", n, len(labels))
	}
	for i, label := range labels {
		if label != values[i] {
			t.Errorf("position %d: got %q, want %q", i, label, values[i])
		}
	}
	if stats.APICalls != n {
		t.Errorf("expected %d api calls, got %d", n, stats.APICalls)
	}
}

func TestCoordinator_EmptyInput(t *testing.T) {
	provider := echoProvider()
	c := newCoordinatorForCategories(provider, testCategories, 10, 4)

	labels, stats := c.Run(context.Background(), nil)
	if len(labels) != 0 {
		t.Errorf("expected no labels, got %v", labels)
	}
	if stats.APICalls != 0 || provider.callCount() != 0 {
		t.Errorf("expected no calls for empty input")
	}
}

func TestCoordinator_AggregatesErrors(t *testing.T) {
	provider := &fakeProvider{respond: func(string) (*llm.Response, error) {
		return nil, fmt.Errorf("invalid_api_key")
	}}
	c := newCoordinatorForCategories(provider, testCategories, 10, 4)

	labels, stats := c.Run(context.Background(), []string{"a", "b", "c"})
	for i, label := range labels {
		if label != unknown {
			t.Errorf("position %d: got %q, want unknown on permanent failure", i, label)
		}
	}
	if stats.Errors != 3 {
		t.Errorf("expected 3 errors aggregated, got %d", stats.Errors)
	}
	if stats.APICalls != 0 {
		t.Errorf("failed dispatches must not count as api calls, got %d", stats.APICalls)
	}
}
