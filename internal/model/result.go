package model

import "time"

// Status tags the terminal state of a single value's classification
type Status string

const (
	StatusEmptyInput     Status = "empty_input"
	StatusCacheHit       Status = "cache_hit"
	StatusSuccess        Status = "success"
	StatusPromptError    Status = "prompt_error"
	StatusPermanentError Status = "permanent_error"
	StatusRetryExhausted Status = "retry_exhausted"
	StatusUnknownFailure Status = "unknown_failure"
)

// ClassificationResult is produced exactly once per canonical value per run.
// Failures never propagate as errors: they degrade to the unknown category
// with a diagnostic status and Err set.
type ClassificationResult struct {
	Label             string
	Cached            bool
	Cost              float64
	PromptTokens      int
	CompletionTokens  int
	Status            Status
	RawResponse       string
	ValidatedResponse string
	Err               error
}

// RunStats aggregates cost, token, and outcome counters for one run
type RunStats struct {
	TotalCost        float64        `json:"total_cost"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	APICalls         int            `json:"api_calls"`
	CacheHits        int            `json:"cache_hits"`
	Errors           int            `json:"errors"`
	OriginalCount    int            `json:"original_count"`
	UniqueCount      int            `json:"unique_count"`
	ReductionRatio   float64        `json:"reduction_ratio"`
	CacheHitRate     float64        `json:"cache_hit_rate"`
	ProcessingTime   time.Duration  `json:"processing_time"`
	Distribution     map[string]int `json:"distribution"`
}
