package story

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// MatchMode controls how a rule's terms are combined.
type MatchMode string

const (
	MatchAny MatchMode = "any"
	MatchAll MatchMode = "all"
)

// PhraseRule maps a keyword group to one visual action phrase per act.
type PhraseRule struct {
	Terms    []string
	Match    MatchMode
	Priority int
	Phrases  [ActCount]string

	longest int
	order   int
}

// Matches reports whether the lower-cased topic triggers the rule.
func (r PhraseRule) Matches(lowerTopic string) bool {
	if len(r.Terms) == 0 {
		return false
	}
	for _, term := range r.Terms {
		hit := strings.Contains(lowerTopic, term)
		if r.Match == MatchAll && !hit {
			return false
		}
		if r.Match != MatchAll && hit {
			return true
		}
	}
	return r.Match == MatchAll
}

// PhraseBank resolves a topic and act into a visual action phrase.
type PhraseBank struct {
	defaults [ActCount]string
	rules    []PhraseRule
}

// Default returns the act's fallback phrase. Out-of-range acts use act 1.
func (b *PhraseBank) Default(act Act) string {
	if !act.Valid() {
		act = ActExposition
	}
	return b.defaults[act-1]
}

// Rules returns the rules in evaluation order.
func (b *PhraseBank) Rules() []PhraseRule {
	out := make([]PhraseRule, len(b.rules))
	copy(out, b.rules)
	return out
}

// Action returns the phrase of the first matching rule for act, or the act default.
func (b *PhraseBank) Action(topic string, act Act) string {
	if !act.Valid() {
		act = ActExposition
	}
	lower := strings.ToLower(topic)
	for _, rule := range b.rules {
		if rule.Matches(lower) {
			return rule.Phrases[act-1]
		}
	}
	return b.defaults[act-1]
}

const promptSuffix = "Highly detailed, cinematic lighting, 1080x1920 vertical format, " +
	"professional photography, dramatic storytelling, 4K quality, masterpiece"

// ComposePrompt builds the image prompt for one scene.
func ComposePrompt(topic string, index int, action, mood string) string {
	return fmt.Sprintf("%s, scene %d: %s. %s atmosphere. This is a scene from the story '%s'. %s",
		topic, index, action, mood, topic, promptSuffix)
}

type phrasesDoc struct {
	Defaults map[int]string `yaml:"defaults"`
	Rules    []struct {
		Terms    string         `yaml:"terms"`
		Match    string         `yaml:"match"`
		Priority int            `yaml:"priority"`
		Phrases  map[int]string `yaml:"phrases"`
	} `yaml:"rules"`
}

func newPhraseBank(doc phrasesDoc) (*PhraseBank, error) {
	bank := &PhraseBank{}
	for _, act := range Acts() {
		phrase := strings.TrimSpace(doc.Defaults[int(act)])
		if phrase == "" {
			return nil, fmt.Errorf("missing default phrase for act %d", act)
		}
		bank.defaults[act-1] = phrase
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rules: %w", errEmptyTable)
	}
	for i, raw := range doc.Rules {
		rule := PhraseRule{Priority: raw.Priority, order: i}
		switch MatchMode(strings.ToLower(strings.TrimSpace(raw.Match))) {
		case "", MatchAny:
			rule.Match = MatchAny
		case MatchAll:
			rule.Match = MatchAll
		default:
			return nil, fmt.Errorf("rule %q: unknown match mode %q", raw.Terms, raw.Match)
		}
		for _, term := range strings.Split(raw.Terms, "|") {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" {
				continue
			}
			rule.Terms = append(rule.Terms, term)
			rule.longest = max(rule.longest, utf8.RuneCountInString(term))
		}
		if len(rule.Terms) == 0 {
			return nil, fmt.Errorf("rule %d has no terms", i+1)
		}
		for _, act := range Acts() {
			phrase := strings.TrimSpace(raw.Phrases[int(act)])
			if phrase == "" {
				return nil, fmt.Errorf("rule %q: missing phrase for act %d", raw.Terms, act)
			}
			rule.Phrases[act-1] = phrase
		}
		bank.rules = append(bank.rules, rule)
	}
	sort.SliceStable(bank.rules, func(i, j int) bool {
		a, b := bank.rules[i], bank.rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.longest != b.longest {
			return a.longest > b.longest
		}
		return a.order < b.order
	})
	return bank, nil
}
