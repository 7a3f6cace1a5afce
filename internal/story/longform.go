package story

import (
	"strings"
	"unicode/utf8"
)

const fallbackTitleRunes = 30

// Analysis is a title plus one synopsis fragment per act.
type Analysis struct {
	Title string           `json:"title"`
	Acts  [ActCount]string `json:"acts"`
}

// Valid reports whether the analysis carries a title and five non-empty acts.
func (a Analysis) Valid() bool {
	if strings.TrimSpace(a.Title) == "" {
		return false
	}
	for _, act := range a.Acts {
		if strings.TrimSpace(act) == "" {
			return false
		}
	}
	return true
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '…':
		return true
	}
	return false
}

// IsLongForm reports whether text reads as a full story rather than a topic.
func IsLongForm(text string, minChars, minSentences int) bool {
	if minChars > 0 && utf8.RuneCountInString(text) > minChars {
		return true
	}
	if minSentences <= 0 {
		return false
	}
	count := 0
	for _, r := range text {
		if isSentenceEnd(r) {
			count++
		}
	}
	return count >= minSentences
}

// SliceActs splits text into five chunks of equal rune length. It is the
// terminal fallback of long-form analysis and never fails.
func SliceActs(text string) [ActCount]string {
	var acts [ActCount]string
	runes := []rune(strings.TrimSpace(text))
	n := len(runes)
	for i := range acts {
		start, end := i*n/ActCount, (i+1)*n/ActCount
		acts[i] = strings.TrimSpace(string(runes[start:end]))
	}
	return acts
}

// FallbackTitle is the first sentence when it is shorter than 30 runes,
// otherwise the first 30 runes.
func FallbackTitle(text string) string {
	runes := []rune(strings.TrimSpace(text))
	for i, r := range runes {
		if isSentenceEnd(r) {
			if i > 0 && i < fallbackTitleRunes {
				return strings.TrimSpace(string(runes[:i]))
			}
			break
		}
	}
	if len(runes) > fallbackTitleRunes {
		runes = runes[:fallbackTitleRunes]
	}
	return strings.TrimSpace(string(runes))
}

// SliceAnalysis builds an Analysis from text without any collaborator.
func SliceAnalysis(text string) Analysis {
	return Analysis{Title: FallbackTitle(text), Acts: SliceActs(text)}
}
