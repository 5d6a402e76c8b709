package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Key generates a deterministic fingerprint for a classification request.
// The key binds the text, category set, model, and prompt template so a
// configuration change never silently serves a stale classification.
// Categories are sorted before hashing, so key identity does not depend on
// configuration ordering. Returns "" for requests that must not be cached.
func Key(text string, categories []string, model, promptTemplate string) string {
	if strings.TrimSpace(text) == "" || len(categories) == 0 || model == "" {
		return ""
	}

	sorted := make([]string, len(categories))
	copy(sorted, categories)
	sort.Strings(sorted)

	h := sha256.New()
	for _, part := range []string{text, strings.Join(sorted, "|"), model, promptTemplate} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}

	return "taxa:v1:" + hex.EncodeToString(h.Sum(nil))
}
