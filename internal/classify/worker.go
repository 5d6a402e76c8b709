package classify

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"taxa/internal/cache"
	"taxa/internal/llm"
	"taxa/internal/model"
	"taxa/internal/ratelimit"
)

// maxBackoff caps the retry delay
const maxBackoff = 60 * time.Second

// permanentIndicators mark errors that no retry can fix
var permanentIndicators = []string{
	"invalid_api_key", "invalid api key",
	"insufficient_quota", "quota exceeded",
	"model_not_found", "model not found",
	"invalid_request", "invalid request",
	"permission_denied", "permission denied",
	"authentication",
}

// transientIndicators mark errors worth retrying with backoff
var transientIndicators = []string{
	"rate_limit", "rate limit",
	"too_many_requests", "too many requests", "429",
	"timeout", "deadline exceeded",
	"connection",
	"server_error", "server error",
	"service_unavailable", "service unavailable",
	"502", "503",
}

// Tokenizer counts prompt tokens for cost estimation
type Tokenizer interface {
	Count(text string) int
}

// Worker classifies one canonical value at a time: cache lookup, prompt
// construction, rate-limit admission, remote call with retry/backoff,
// validation, cache write. No error escapes a single value's classification;
// failures degrade to the unknown category with a diagnostic status.
type Worker struct {
	provider  llm.Provider
	store     *cache.Store // nil when caching is disabled
	limiter   *ratelimit.Window
	validator *Validator
	tokens    Tokenizer
	logger    *zap.Logger

	categories     []string
	unknown        string
	promptTemplate string
	llmCfg         model.LLMConfig

	sleep func(ctx context.Context, d time.Duration) error
}

// NewWorker creates a classification worker
func NewWorker(
	provider llm.Provider,
	store *cache.Store,
	limiter *ratelimit.Window,
	validator *Validator,
	tokens Tokenizer,
	categories []string,
	unknown string,
	promptTemplate string,
	llmCfg model.LLMConfig,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		provider:       provider,
		store:          store,
		limiter:        limiter,
		validator:      validator,
		tokens:         tokens,
		categories:     categories,
		unknown:        unknown,
		promptTemplate: promptTemplate,
		llmCfg:         llmCfg,
		logger:         logger,
		sleep:          sleepContext,
	}
}

// ClassifyValue runs the per-value state machine and always returns a
// terminal ClassificationResult.
func (w *Worker) ClassifyValue(ctx context.Context, text string) model.ClassificationResult {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		// Never consults the cache or the remote endpoint.
		return model.ClassificationResult{Label: w.unknown, Status: model.StatusEmptyInput}
	}

	if w.store != nil {
		if label, ok := w.store.Lookup(trimmed, w.categories, w.llmCfg.Model, w.promptTemplate); ok {
			return model.ClassificationResult{Label: label, Cached: true, Status: model.StatusCacheHit}
		}
	}

	prompt := w.buildPrompt(trimmed)
	promptTokens := w.tokens.Count(prompt)

	if err := w.limiter.Admit(ctx); err != nil {
		w.logger.Warn("rate limit admission aborted", zap.Error(err))
		return model.ClassificationResult{Label: w.unknown, Status: model.StatusUnknownFailure, Err: err}
	}

	req := llm.Request{
		Model:       w.llmCfg.Model,
		Prompt:      prompt,
		Temperature: w.llmCfg.Temperature,
		MaxTokens:   w.llmCfg.MaxTokens,
		Timeout:     w.llmCfg.Timeout,
	}

	maxRetries := w.llmCfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := w.provider.Classify(ctx, req)
		if err == nil {
			return w.success(trimmed, prompt, promptTokens, resp)
		}

		if isPermanent(err) {
			w.logger.Error("permanent remote error", zap.String("text", trimmed), zap.Error(err))
			return model.ClassificationResult{
				Label: w.unknown, Status: model.StatusPermanentError, Err: err,
			}
		}

		// Transient and unclassified errors share the remaining retry budget.
		if attempt < maxRetries-1 {
			kind := "unclassified"
			if isTransient(err) {
				kind = "transient"
			}
			backoff := backoffDelay(w.llmCfg.BackoffFactor, attempt)
			w.logger.Warn("retryable remote error",
				zap.String("kind", kind),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", maxRetries),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if sleepErr := w.sleep(ctx, backoff); sleepErr != nil {
				return model.ClassificationResult{
					Label: w.unknown, Status: model.StatusRetryExhausted, Err: sleepErr,
				}
			}
			continue
		}

		w.logger.Error("remote call failed after retries",
			zap.Int("attempts", maxRetries), zap.Error(err))
		return model.ClassificationResult{
			Label: w.unknown, Status: model.StatusRetryExhausted, Err: err,
		}
	}

	return model.ClassificationResult{Label: w.unknown, Status: model.StatusUnknownFailure}
}

// success validates the response, caches it, and builds the terminal result
func (w *Worker) success(text, prompt string, promptTokens int, resp *llm.Response) model.ClassificationResult {
	validated := w.validator.Validate(resp.Content)
	cost := llm.EstimateCost(w.llmCfg.Model, promptTokens, resp.CompletionTokens)

	if w.store != nil {
		w.store.Put(text, w.categories, w.llmCfg.Model, w.promptTemplate, validated)
	}

	return model.ClassificationResult{
		Label:             validated,
		Cost:              cost,
		PromptTokens:      promptTokens,
		CompletionTokens:  resp.CompletionTokens,
		Status:            model.StatusSuccess,
		RawResponse:       resp.Content,
		ValidatedResponse: validated,
	}
}

// buildPrompt fills the template placeholders
func (w *Worker) buildPrompt(text string) string {
	prompt := strings.ReplaceAll(w.promptTemplate, "{categories}", strings.Join(w.categories, ", "))
	return strings.ReplaceAll(prompt, "{text}", text)
}

// backoffDelay returns min(factor^attempt, 60s)
func backoffDelay(factor float64, attempt int) time.Duration {
	if factor < 1 {
		factor = 1
	}
	seconds := math.Min(math.Pow(factor, float64(attempt)), maxBackoff.Seconds())
	return time.Duration(seconds * float64(time.Second))
}

// isPermanent reports whether the error description names a condition no
// retry can fix. Anything not recognized is treated as transient for the
// remaining retry budget.
func isPermanent(err error) bool {
	desc := strings.ToLower(err.Error())
	for _, indicator := range permanentIndicators {
		if strings.Contains(desc, indicator) {
			return true
		}
	}
	return false
}

// isTransient reports whether the error description names a retryable
// condition.
func isTransient(err error) bool {
	desc := strings.ToLower(err.Error())
	for _, indicator := range transientIndicators {
		if strings.Contains(desc, indicator) {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
