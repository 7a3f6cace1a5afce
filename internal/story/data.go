package story

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embeddedData embed.FS

const (
	narrationFile = "narration.yaml"
	phrasesFile   = "phrases.yaml"
	legacyFile    = "legacy.yaml"
	genresFile    = "genres.yaml"
	musicFile     = "music.yaml"
)

// Tables bundles the static data the engine reads. A Tables value is never
// mutated after Load returns, so it is safe to share between goroutines.
type Tables struct {
	Pool    *NarrationPool
	Phrases *PhraseBank
	Tales   []LegacyTale
	Genres  *GenreCatalog
	Music   *MusicLibrary
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
)

func init() {
	DefaultTables()
}

// DefaultTables returns the embedded tables, parsing them on first use.
// Malformed embedded data panics.
func DefaultTables() *Tables {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embeddedData, "data")
		if err != nil {
			panic(fmt.Errorf("story data: %w", err))
		}
		defaultTables = MustLoad(sub)
	})
	return defaultTables
}

// MustLoad is Load that panics on error.
func MustLoad(fsys fs.FS) *Tables {
	tables, err := Load(fsys)
	if err != nil {
		panic(fmt.Errorf("story data: %w", err))
	}
	return tables
}

// Load parses and validates every table found at the root of fsys.
func Load(fsys fs.FS) (*Tables, error) {
	var (
		narration narrationDoc
		phrases   phrasesDoc
		legacy    legacyDoc
		genres    genresDoc
		music     musicDoc
	)
	docs := []struct {
		name   string
		target any
	}{
		{narrationFile, &narration},
		{phrasesFile, &phrases},
		{legacyFile, &legacy},
		{genresFile, &genres},
		{musicFile, &music},
	}
	for _, doc := range docs {
		if err := decodeYAML(fsys, doc.name, doc.target); err != nil {
			return nil, err
		}
	}

	pool, err := newNarrationPool(narration)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", narrationFile, err)
	}
	bank, err := newPhraseBank(phrases)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", phrasesFile, err)
	}
	tales, err := newLegacyTales(legacy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", legacyFile, err)
	}
	catalog, err := newGenreCatalog(genres)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", genresFile, err)
	}
	library, err := newMusicLibrary(music)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", musicFile, err)
	}
	return &Tables{Pool: pool, Phrases: bank, Tales: tales, Genres: catalog, Music: library}, nil
}

func decodeYAML(fsys fs.FS, name string, target any) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
