// Package tickets extracts ticket identifiers from commit messages.
package tickets

import (
	"fmt"
	"regexp"
	"strings"
)

// Extractor finds ticket ids in commit messages, canonicalizes known
// alias project keys and deduplicates while preserving first-seen order.
type Extractor struct {
	pattern *regexp.Regexp
	aliases map[string]string
}

// New compiles pattern and validates the alias table. Aliases map a
// legacy project key to its current one (e.g. "FOOD" -> "DATAU"); an
// alias target that is itself an alias key would make rewriting
// non-idempotent and is rejected.
func New(pattern string, aliases map[string]string) (*Extractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid ticket pattern %q: %w", pattern, err)
	}
	for key, target := range aliases {
		if _, ok := aliases[target]; ok {
			return nil, fmt.Errorf("ticket alias %s -> %s: target is itself an alias", key, target)
		}
	}
	return &Extractor{pattern: re, aliases: aliases}, nil
}

// Canonical rewrites the project key of id through the alias table.
// Ids without a recognized alias key pass through unchanged, so
// applying Canonical twice equals applying it once.
func (e *Extractor) Canonical(id string) string {
	key, num, ok := strings.Cut(id, "-")
	if !ok {
		return id
	}
	if target, known := e.aliases[key]; known {
		return target + "-" + num
	}
	return id
}

// Extract returns the distinct ticket ids referenced by messages,
// most recently referenced first. Messages must already be ordered
// newest first; a message may contribute zero, one or many ids.
// Canonicalization happens before dedup so aliases collapse into one
// entry at the position of their first occurrence.
func (e *Extractor) Extract(messages []string) []string {
	var ids []string
	seen := map[string]struct{}{}
	for _, msg := range messages {
		for _, raw := range e.pattern.FindAllString(msg, -1) {
			id := e.Canonical(raw)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
