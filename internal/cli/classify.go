package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taxa/internal/classify"
	"taxa/internal/logging"
	"taxa/internal/model"
	"taxa/internal/recordset"
)

var (
	columns       []string
	outputColumn  string
	outPath       string
	categories    []string
	llmModel      string
	temperature   float32
	maxTokens     int
	timeout       time.Duration
	maxRetries    int
	backoffFactor float64
	batchSize     int
	workers       int
	rpm           int
	batchDelay    time.Duration
	noCache       bool
	cacheDir      string
	cacheTTLDays  int
	unknownCat    string
	strict        bool
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <input.csv>",
	Short: "Classify a CSV of records into a fixed category set",
	Long: `Classify reads a CSV file, combines the selected text columns for each
row, classifies every distinct value through the configured LLM endpoint, and
writes the input back out with an added classification column.

Identical values are classified once. Results are cached on disk so repeat
runs over the same data cost nothing.

Example:
  taxa classify jobs.csv --columns title --categories "Engineering,Sales,Other"
  taxa classify tickets.csv --columns subject,body --out tickets-labeled.csv
  taxa classify data.csv --columns name --model gpt-4o --workers 20`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	defaults := model.DefaultConfig()

	// Input/output flags
	classifyCmd.Flags().StringSliceVar(&columns, "columns", nil, "CSV columns to combine as classification input (required)")
	classifyCmd.Flags().StringVar(&outputColumn, "output-column", "classification", "name of the column to write labels into")
	classifyCmd.Flags().StringVar(&outPath, "out", "", "output CSV path (default: stdout)")

	// Taxonomy flags
	classifyCmd.Flags().StringSliceVar(&categories, "categories", nil, "target categories (required unless set in config)")
	classifyCmd.Flags().StringVar(&unknownCat, "unknown-category", defaults.Classification.UnknownCategory, "fallback label for unmatched or failed values")
	classifyCmd.Flags().BoolVar(&strict, "strict", false, "accept only exact category matches from the model")

	// LLM flags
	classifyCmd.Flags().StringVar(&llmModel, "model", defaults.LLM.Model, "LLM model name")
	classifyCmd.Flags().Float32Var(&temperature, "temperature", defaults.LLM.Temperature, "sampling temperature")
	classifyCmd.Flags().IntVar(&maxTokens, "max-tokens", defaults.LLM.MaxTokens, "completion token cap per request")
	classifyCmd.Flags().DurationVar(&timeout, "timeout", defaults.LLM.Timeout, "per-request timeout")
	classifyCmd.Flags().IntVar(&maxRetries, "max-retries", defaults.LLM.MaxRetries, "dispatch attempts per value")
	classifyCmd.Flags().Float64Var(&backoffFactor, "backoff-factor", defaults.LLM.BackoffFactor, "exponential retry backoff factor")

	// Throughput flags
	classifyCmd.Flags().IntVar(&batchSize, "batch-size", defaults.Classification.BatchSize, "base batch size")
	classifyCmd.Flags().IntVar(&workers, "workers", defaults.Concurrency.Workers, "maximum concurrent batches")
	classifyCmd.Flags().IntVar(&rpm, "rpm", defaults.RateLimit.RequestsPerMinute, "request budget per trailing 60s window")
	classifyCmd.Flags().DurationVar(&batchDelay, "batch-delay", defaults.RateLimit.BatchDelay, "pause between batch dispatches (0 disables)")

	// Cache flags
	classifyCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the persistent classification cache")
	classifyCmd.Flags().StringVar(&cacheDir, "cache-dir", defaults.Cache.Directory, "cache directory")
	classifyCmd.Flags().IntVar(&cacheTTLDays, "cache-ttl-days", defaults.Cache.TTLDays, "cache entry time-to-live in days")
}

func runClassify(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	frame, err := recordset.ReadCSV(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", inputPath, err)
	}

	classifier, err := classify.New(cfg, logger)
	if err != nil {
		return err
	}

	stats, err := classifier.ClassifyFrame(context.Background(), frame, columns, outputColumn)
	if err != nil {
		return err
	}

	if err := writeFrame(frame, outPath); err != nil {
		return err
	}

	printSummary(stats, cfg)
	return nil
}

// buildConfig layers flags over the config file over defaults.
func buildConfig(cmd *cobra.Command) (model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	// Explicit flags win over the config file.
	if cmd.Flags().Changed("categories") || len(cfg.Classification.Categories) == 0 {
		cfg.Classification.Categories = categories
	}
	if cmd.Flags().Changed("unknown-category") {
		cfg.Classification.UnknownCategory = unknownCat
	}
	if cmd.Flags().Changed("strict") {
		cfg.Validation.StrictMatching = strict
	}
	if cmd.Flags().Changed("model") {
		cfg.LLM.Model = llmModel
	}
	if cmd.Flags().Changed("temperature") {
		cfg.LLM.Temperature = temperature
	}
	if cmd.Flags().Changed("max-tokens") {
		cfg.LLM.MaxTokens = maxTokens
	}
	if cmd.Flags().Changed("timeout") {
		cfg.LLM.Timeout = timeout
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.LLM.MaxRetries = maxRetries
	}
	if cmd.Flags().Changed("backoff-factor") {
		cfg.LLM.BackoffFactor = backoffFactor
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.Classification.BatchSize = batchSize
	}
	if cmd.Flags().Changed("workers") {
		cfg.Concurrency.Workers = workers
	}
	if cmd.Flags().Changed("rpm") {
		cfg.RateLimit.RequestsPerMinute = rpm
	}
	if cmd.Flags().Changed("batch-delay") {
		cfg.RateLimit.BatchDelay = batchDelay
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.Cache.Directory = cacheDir
	}
	if cmd.Flags().Changed("cache-ttl-days") {
		cfg.Cache.TTLDays = cacheTTLDays
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.APIKey == "" {
		return cfg, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	return cfg, nil
}

func writeFrame(frame *recordset.Frame, path string) error {
	if path == "" {
		return frame.WriteCSV(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := frame.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func printSummary(stats model.RunStats, cfg model.Config) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Classification Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Records:      %d (%d distinct, %.1f%% of input)\n",
		stats.OriginalCount, stats.UniqueCount, stats.ReductionRatio*100)
	fmt.Fprintf(os.Stderr, "  API calls:    %d\n", stats.APICalls)
	fmt.Fprintf(os.Stderr, "  Cache hits:   %d (%.1f%% hit rate)\n", stats.CacheHits, stats.CacheHitRate*100)
	fmt.Fprintf(os.Stderr, "  Errors:       %d\n", stats.Errors)
	fmt.Fprintf(os.Stderr, "  Est. cost:    $%.4f (%s)\n", stats.TotalCost, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Elapsed:      %v\n", stats.ProcessingTime.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "\n")

	if len(stats.Distribution) > 0 {
		labels := make([]string, 0, len(stats.Distribution))
		for label := range stats.Distribution {
			labels = append(labels, label)
		}
		sort.Slice(labels, func(i, j int) bool {
			if stats.Distribution[labels[i]] != stats.Distribution[labels[j]] {
				return stats.Distribution[labels[i]] > stats.Distribution[labels[j]]
			}
			return labels[i] < labels[j]
		})

		fmt.Fprintf(os.Stderr, "  Distribution:\n")
		for _, label := range labels {
			fmt.Fprintf(os.Stderr, "    %-30s %d\n", label, stats.Distribution[label])
		}
		fmt.Fprintf(os.Stderr, "\n")
	}
}
