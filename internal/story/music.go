package story

import (
	"fmt"
	"sort"
	"strings"
)

// Track is a background music suggestion.
type Track struct {
	Key         string `json:"key"`
	Name        string `json:"name" yaml:"name"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
}

type keywordSet struct {
	track string
	words []string
}

// MusicLibrary matches story moods and genres to tracks.
type MusicLibrary struct {
	tracks      map[string]Track
	fallback    string
	traditional string
	markers     []string
	keywords    []keywordSet
}

// Tracks lists the library sorted by key.
func (l *MusicLibrary) Tracks() []Track {
	out := make([]Track, 0, len(l.tracks))
	for _, t := range l.tracks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Match picks a track: exact mood key, then a traditional genre, then mood
// keywords, then the default.
func (l *MusicLibrary) Match(mood, genre string) Track {
	moodLower := strings.ToLower(strings.TrimSpace(mood))
	genreLower := strings.ToLower(genre)
	if t, ok := l.tracks[moodLower]; ok {
		return t
	}
	for _, marker := range l.markers {
		if strings.Contains(genreLower, marker) {
			return l.tracks[l.traditional]
		}
	}
	for _, set := range l.keywords {
		for _, word := range set.words {
			if strings.Contains(moodLower, word) {
				return l.tracks[set.track]
			}
		}
	}
	return l.tracks[l.fallback]
}

// MatchMusic matches against the embedded library.
func MatchMusic(mood, genre string) Track {
	return DefaultTables().Music.Match(mood, genre)
}

type musicDoc struct {
	Default            string           `yaml:"default"`
	Traditional        string           `yaml:"traditional"`
	TraditionalMarkers []string         `yaml:"traditional_markers"`
	Tracks             map[string]Track `yaml:"tracks"`
	Keywords           []struct {
		Track string   `yaml:"track"`
		Words []string `yaml:"words"`
	} `yaml:"keywords"`
}

func newMusicLibrary(doc musicDoc) (*MusicLibrary, error) {
	if len(doc.Tracks) == 0 {
		return nil, fmt.Errorf("tracks: %w", errEmptyTable)
	}
	lib := &MusicLibrary{
		tracks:      make(map[string]Track, len(doc.Tracks)),
		fallback:    doc.Default,
		traditional: doc.Traditional,
	}
	for key, track := range doc.Tracks {
		if track.Name == "" || track.URL == "" {
			return nil, fmt.Errorf("track %q needs name and url", key)
		}
		track.Key = key
		lib.tracks[strings.ToLower(key)] = track
	}
	for _, ref := range []string{doc.Default, doc.Traditional} {
		if _, ok := lib.tracks[ref]; !ok {
			return nil, fmt.Errorf("unknown track %q", ref)
		}
	}
	for _, m := range doc.TraditionalMarkers {
		lib.markers = append(lib.markers, strings.ToLower(m))
	}
	for _, set := range doc.Keywords {
		if _, ok := lib.tracks[set.Track]; !ok {
			return nil, fmt.Errorf("keyword set references unknown track %q", set.Track)
		}
		lib.keywords = append(lib.keywords, keywordSet{track: set.Track, words: set.Words})
	}
	return lib, nil
}
