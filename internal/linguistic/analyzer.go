// Package linguistic implements the stateless completeness scorer consulted
// by the turn detector and the backchannel trigger detector.
package linguistic

import (
	"strings"

	"github.com/MrWong99/turnengine/internal/config"
)

// Result is the full analysis of a single transcript string.
type Result struct {
	CompletenessScore    float64
	IsQuestion           bool
	WordCount            int
	SentenceCount        int
	EndsWithContinuation bool
	EndsWithPunctuation  bool
}

// Analyzer scores transcript completeness against a configured lexicon. It
// holds no per-call state: the same Analyzer may be shared across
// connections and goroutines.
type Analyzer struct {
	lexicon config.LexiconConfig

	continuation map[string]struct{}
	question     map[string]struct{}
	commonVerb   map[string]struct{}
}

// New builds an Analyzer from the given lexicon.
func New(lexicon config.LexiconConfig) *Analyzer {
	return &Analyzer{
		lexicon:      lexicon,
		continuation: toSet(lexicon.ContinuationWords),
		question:     toSet(lexicon.QuestionWords),
		commonVerb:   toSet(lexicon.CommonVerbs),
	}
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

var terminalPunctuation = map[byte]struct{}{'.': {}, '?': {}, '!': {}}

// Analyze scores transcript according to the fixed rule cascade: empty
// input, short input, continuation-word short circuit, or the additive
// scoring path. Rules are evaluated in order and the first match that
// returns a fixed score (rules 1-3) short-circuits the rest.
func (a *Analyzer) Analyze(transcript string) Result {
	trimmed := strings.TrimSpace(transcript)
	words := strings.Fields(trimmed)

	res := Result{
		WordCount:           len(words),
		SentenceCount:       countSentences(trimmed),
		EndsWithPunctuation: endsWithTerminalPunctuation(trimmed),
		IsQuestion:          a.isQuestion(trimmed, words),
	}

	if trimmed == "" {
		res.CompletenessScore = 0
		return res
	}

	if len(words) < 3 {
		res.CompletenessScore = 20
		return res
	}

	if a.endsWithContinuationPhrase(words) {
		res.EndsWithContinuation = true
		res.CompletenessScore = 30
		return res
	}

	score := 0.0
	if res.EndsWithPunctuation {
		score += 40
	}
	if a.hasSubjectAndVerb(words) {
		score += 20
	}
	if res.SentenceCount >= 1 && res.EndsWithPunctuation {
		score += 30
	}
	if res.IsQuestion && strings.HasSuffix(trimmed, "?") {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	res.CompletenessScore = score
	return res
}

// endsWithContinuationPhrase checks the continuation set against the last
// word, and also against the last two words for multi-word phrases like
// "you know" that the lexicon may list verbatim.
func (a *Analyzer) endsWithContinuationPhrase(words []string) bool {
	last := strings.ToLower(stripPunctuation(words[len(words)-1]))
	if _, ok := a.continuation[last]; ok {
		return true
	}
	if len(words) >= 2 {
		secondLast := strings.ToLower(stripPunctuation(words[len(words)-2]))
		if _, ok := a.continuation[secondLast+" "+last]; ok {
			return true
		}
	}
	return false
}

func (a *Analyzer) isQuestion(trimmed string, words []string) bool {
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	if len(words) == 0 {
		return false
	}
	first := strings.ToLower(stripPunctuation(words[0]))
	_, ok := a.question[first]
	return ok
}

func (a *Analyzer) hasSubjectAndVerb(words []string) bool {
	if len(words) >= 3 {
		return true
	}
	for _, w := range words {
		if _, ok := a.commonVerb[strings.ToLower(stripPunctuation(w))]; ok {
			return true
		}
	}
	return false
}

// countSentences counts terminal-punctuation marks, the signal a streaming
// transcript actually offers for sentence boundaries. An utterance with no
// punctuation yet (the common case mid-turn) counts as zero sentences, not
// one: "sentence count >= 2" gates are meant to catch genuinely multi-
// sentence turns, not any nonempty partial.
func countSentences(s string) int {
	count := 0
	for _, r := range s {
		switch r {
		case '.', '?', '!':
			count++
		}
	}
	return count
}

func endsWithTerminalPunctuation(s string) bool {
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	_, ok := terminalPunctuation[last]
	return ok
}

func stripPunctuation(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		switch r {
		case '.', '?', '!', ',', ';', ':', '"', '\'':
			return true
		default:
			return false
		}
	})
}
