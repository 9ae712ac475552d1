// internal/words/generator.go
package words

import (
	"regexp"
	"strings"

	"github.com/wordrelay/relay/internal/models"
)

// Target extraction caps. A session never plays more than this many of each.
const (
	MaxWords     = 8
	MaxSentences = 3
	minWordLen   = 5
)

var (
	wordPattern     = regexp.MustCompile(`[a-zA-Z]{5,}`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]`)
)

// Generate derives both target lists from free text. Extraction is
// deterministic and mode-independent; the mode only decides which lists the
// relay walk plays. Either list may come back empty; callers treat that as
// "no valid target for this mode" rather than an error.
func Generate(_ models.Mode, sourceText string) models.Targets {
	return models.Targets{
		Words:     ExtractWords(sourceText),
		Sentences: ExtractSentences(sourceText),
	}
}

// ExtractWords returns maximal alphabetic runs of length >= 5, lowercased,
// deduplicated preserving first-seen order, capped at MaxWords.
func ExtractWords(sourceText string) []string {
	matches := wordPattern.FindAllString(sourceText, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		w := strings.ToLower(m)
		if len(w) < minWordLen || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == MaxWords {
			break
		}
	}
	return out
}

// ExtractSentences splits on runs ending in '.', '!' or '?', trims each
// candidate, and caps the list at MaxSentences.
func ExtractSentences(sourceText string) []string {
	matches := sentencePattern.FindAllString(sourceText, -1)
	var out []string
	for _, m := range matches {
		s := strings.TrimSpace(m)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == MaxSentences {
			break
		}
	}
	return out
}
