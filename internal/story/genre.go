package story

import (
	"fmt"
	"strings"
)

// Genre describes a story structure the genre detector can choose.
type Genre struct {
	Name           string   `yaml:"name" json:"name"`
	Description    string   `yaml:"description" json:"description"`
	NarrationStyle string   `yaml:"narration_style" json:"narration_style"`
	ActNames       []string `yaml:"act_names" json:"act_names"`
	MoodPalette    []string `yaml:"mood_palette" json:"mood_palette"`
}

// GenreCatalog is the ordered genre table. The first genre is the default.
type GenreCatalog struct {
	genres []Genre
	index  map[string]int
}

// Default returns the fallback genre.
func (c *GenreCatalog) Default() Genre {
	return c.genres[0]
}

// All returns the genres in table order.
func (c *GenreCatalog) All() []Genre {
	out := make([]Genre, len(c.genres))
	copy(out, c.genres)
	return out
}

// Lookup finds a genre by name, ignoring case and surrounding space.
func (c *GenreCatalog) Lookup(name string) (Genre, bool) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Genre{}, false
	}
	return c.genres[i], true
}

// Resolve is Lookup with a fallback to the default genre.
func (c *GenreCatalog) Resolve(name string) Genre {
	if g, ok := c.Lookup(name); ok {
		return g
	}
	return c.Default()
}

type genresDoc struct {
	Genres []Genre `yaml:"genres"`
}

func newGenreCatalog(doc genresDoc) (*GenreCatalog, error) {
	if len(doc.Genres) == 0 {
		return nil, fmt.Errorf("genres: %w", errEmptyTable)
	}
	catalog := &GenreCatalog{genres: doc.Genres, index: make(map[string]int, len(doc.Genres))}
	for i, g := range doc.Genres {
		key := strings.ToLower(strings.TrimSpace(g.Name))
		if key == "" {
			return nil, fmt.Errorf("genre %d has no name", i+1)
		}
		if _, dup := catalog.index[key]; dup {
			return nil, fmt.Errorf("duplicate genre %q", g.Name)
		}
		if len(g.ActNames) == 0 || len(g.MoodPalette) == 0 {
			return nil, fmt.Errorf("genre %q needs act names and a mood palette", g.Name)
		}
		catalog.index[key] = i
	}
	return catalog, nil
}
