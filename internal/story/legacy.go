package story

import (
	"fmt"
	"strings"
)

// LegacyScene is one hand-written scene of a folk tale.
type LegacyScene struct {
	Title             string `yaml:"title"`
	Description       string `yaml:"description"`
	KoreanDescription string `yaml:"korean_description"`
	Narration         string `yaml:"narration"`
	Camera            string `yaml:"camera"`
	Mood              string `yaml:"mood"`
}

// SpokenLine returns the narration, falling back to the Korean description.
func (s LegacyScene) SpokenLine() string {
	if s.Narration != "" {
		return s.Narration
	}
	return s.KoreanDescription
}

// LegacyTale is a fixed scene table for a well-known story.
type LegacyTale struct {
	Key    string        `yaml:"key"`
	Genre  string        `yaml:"genre"`
	Style  string        `yaml:"style"`
	Mood   string        `yaml:"mood"`
	Music  string        `yaml:"music"`
	Scenes []LegacyScene `yaml:"scenes"`
}

// FindTale returns the first tale whose key appears in topic.
func (t *Tables) FindTale(topic string) (LegacyTale, bool) {
	for _, tale := range t.Tales {
		if strings.Contains(topic, tale.Key) {
			return tale, true
		}
	}
	return LegacyTale{}, false
}

type legacyDoc struct {
	Tales []LegacyTale `yaml:"tales"`
}

func newLegacyTales(doc legacyDoc) ([]LegacyTale, error) {
	if len(doc.Tales) == 0 {
		return nil, fmt.Errorf("tales: %w", errEmptyTable)
	}
	for _, tale := range doc.Tales {
		if strings.TrimSpace(tale.Key) == "" {
			return nil, fmt.Errorf("tale without key")
		}
		if len(tale.Scenes) == 0 {
			return nil, fmt.Errorf("tale %q has no scenes", tale.Key)
		}
		for i, scene := range tale.Scenes {
			if scene.Title == "" || scene.Description == "" || scene.SpokenLine() == "" {
				return nil, fmt.Errorf("tale %q scene %d: title, description, and narration text are required", tale.Key, i+1)
			}
		}
	}
	return doc.Tales, nil
}
