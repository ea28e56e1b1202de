// Package matching reconciles noisy merchant and category guesses against the
// user's known payee and category lists. It favors precision over recall:
// structural containment only, no edit distance, because a wrong payee or
// category match on financial data is worse than no match.
package matching

import (
	"sort"
	"strings"
)

// rankClass orders candidate matches from best to worst.
type rankClass int

const (
	childExact rankClass = iota
	childContainsRaw
	rawContainsChild
)

type candidate struct {
	value string // original list entry
	class rankClass
	size  int // length of the matching segment
}

// FindBestMatch ranks rawText against a list of known entries and returns the
// best one, or "" when nothing matches. Matching is case-insensitive and
// trimmed. Hierarchical entries ("Food:Dining") are matched on their leaf
// segment; flat entries on the whole string.
//
// Priority: exact match, then leaf exact, then leaf-contains-raw (shortest leaf
// wins, closest to what was typed), then raw-contains-leaf (longest leaf wins,
// most specific). Callers must treat "" as "keep the original guess", never
// substitute an unrelated entry.
func FindBestMatch(rawText string, list []string) string {
	raw := strings.ToLower(strings.TrimSpace(rawText))
	if raw == "" || len(list) == 0 {
		return ""
	}

	var candidates []candidate
	for _, item := range list {
		normalized := strings.ToLower(strings.TrimSpace(item))
		if normalized == raw {
			return item
		}

		// For "Food:Dining Out" the leaf is "dining out"; flat entries are
		// their own leaf.
		parts := strings.Split(normalized, ":")
		leaf := strings.TrimSpace(parts[len(parts)-1])
		if leaf == "" {
			continue
		}

		switch {
		case leaf == raw:
			candidates = append(candidates, candidate{item, childExact, len(leaf)})
		case strings.Contains(leaf, raw):
			candidates = append(candidates, candidate{item, childContainsRaw, len(leaf)})
		case strings.Contains(raw, leaf):
			candidates = append(candidates, candidate{item, rawContainsChild, len(leaf)})
		}
	}

	if len(candidates) == 0 {
		return ""
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.class != b.class {
			return a.class < b.class
		}
		switch a.class {
		case childContainsRaw:
			return a.size < b.size
		case rawContainsChild:
			return a.size > b.size
		}
		return false
	})

	return candidates[0].value
}
