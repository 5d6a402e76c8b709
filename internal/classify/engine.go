package classify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"taxa/internal/model"
	"taxa/internal/recordset"
)

// ClassifyFrame combines the named columns of a record set into one
// classification input per record, classifies them, and writes the labels
// back under outputColumn. Item-level failures degrade to the unknown
// category; structural failures (empty frame, missing columns, no usable
// text, count mismatch) abort the run.
func (c *Classifier) ClassifyFrame(ctx context.Context, frame *recordset.Frame, columns []string, outputColumn string) (model.RunStats, error) {
	var stats model.RunStats

	if frame == nil || frame.Len() == 0 {
		return stats, fmt.Errorf("record set is empty")
	}
	if len(columns) == 0 {
		return stats, fmt.Errorf("no columns specified for classification")
	}
	if outputColumn == "" {
		outputColumn = "classification"
	}

	combined, err := frame.CombineColumns(columns)
	if err != nil {
		return stats, fmt.Errorf("combine columns: %w", err)
	}

	valid := 0
	for _, text := range combined {
		if strings.TrimSpace(text) != "" {
			valid++
		}
	}
	if valid == 0 {
		return stats, fmt.Errorf("no valid text found after combining columns %v", columns)
	}
	c.logger.Info("combined record texts",
		zap.Strings("columns", columns),
		zap.Int("records", len(combined)),
		zap.Int("valid", valid))

	labels, stats, err := c.ClassifyTexts(ctx, combined)
	if err != nil {
		return stats, fmt.Errorf("classification failed: %w", err)
	}
	if len(labels) != len(combined) {
		return stats, fmt.Errorf("classification count mismatch: %d labels for %d records", len(labels), len(combined))
	}

	if err := frame.SetColumn(outputColumn, labels); err != nil {
		return stats, fmt.Errorf("write output column: %w", err)
	}

	return stats, nil
}
