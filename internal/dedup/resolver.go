package dedup

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Resolver collapses N raw records into U <= N unique canonical values and
// re-expands a U-length result vector into an N-length output. Normalization
// is deliberately conservative (trim surrounding whitespace only) so that
// semantically distinct values are never merged.
type Resolver struct {
	logger *zap.Logger

	uniques  []string
	indexMap map[string][]int
	empty    []int
	prepared bool
}

// NewResolver creates a deduplication resolver
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Prepare groups record indices by normalized value and returns one canonical
// representative per distinct value, in first-seen order. The canonical form
// is the first-seen original (pre-normalization) string. Empty and
// whitespace-only records are tracked separately and excluded from the
// returned unique list; they always resolve to the unknown category on
// expansion.
func (r *Resolver) Prepare(records []string) ([]string, map[string][]int) {
	r.uniques = nil
	r.indexMap = make(map[string][]int)
	r.empty = nil

	firstSeen := make(map[string]string, len(records))

	for i, rec := range records {
		normalized := strings.TrimSpace(rec)
		if normalized == "" {
			r.empty = append(r.empty, i)
			continue
		}

		canonical, seen := firstSeen[normalized]
		if !seen {
			canonical = rec
			firstSeen[normalized] = canonical
			r.uniques = append(r.uniques, canonical)
		}
		r.indexMap[canonical] = append(r.indexMap[canonical], i)
	}

	r.prepared = true

	r.logger.Info("deduplicated records",
		zap.Int("records", len(records)),
		zap.Int("unique", len(r.uniques)),
		zap.Int("empty", len(r.empty)))

	return r.uniques, r.indexMap
}

// Expand maps a per-unique result vector back onto the original record
// positions. Positions belonging to empty records, and any position not
// covered by a known value, keep the provided unknown category.
func (r *Resolver) Expand(uniqueResults []string, originalCount int, unknownCategory string) ([]string, error) {
	if !r.prepared {
		return nil, fmt.Errorf("expand called before prepare")
	}
	if len(uniqueResults) != len(r.uniques) {
		return nil, fmt.Errorf("result count mismatch: %d results for %d unique values",
			len(uniqueResults), len(r.uniques))
	}

	out := make([]string, originalCount)
	for i := range out {
		out[i] = unknownCategory
	}

	for i, canonical := range r.uniques {
		for _, idx := range r.indexMap[canonical] {
			if idx >= 0 && idx < originalCount {
				out[idx] = uniqueResults[i]
			}
		}
	}

	return out, nil
}
