package backchannel

import "strings"

// toLowerSet builds a lowercase membership set from a word list, the same
// idiom the linguistic analyzer uses for its own lexicon sets.
func toLowerSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

func toLowerSlice(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}

// containsAnyWord reports whether lower contains any member of set as a
// substring. Good enough for single-word lexicon entries; multi-word phrases
// belong in containsAnyPhrase instead.
func containsAnyWord(lower string, set map[string]struct{}) bool {
	for w := range set {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func containsAnyPhrase(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
