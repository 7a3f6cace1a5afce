package story

import (
	"errors"
	"fmt"
	"strings"
)

// PoolSizePerAct is the number of narration lines authored for each act.
const PoolSizePerAct = 15

// NarrationEntry is one pool line together with its paired mood and camera.
type NarrationEntry struct {
	Narration  string
	Mood       string
	KoreanMood string
	Camera     string
}

// NarrationPool is the read-only table of narration entries per act.
type NarrationPool struct {
	acts [ActCount][]NarrationEntry
}

// Entries returns a copy of the act's entries.
func (p *NarrationPool) Entries(act Act) []NarrationEntry {
	if p == nil || !act.Valid() {
		return nil
	}
	out := make([]NarrationEntry, len(p.acts[act-1]))
	copy(out, p.acts[act-1])
	return out
}

// Allocation is the narration, mood, and camera assigned to one scene.
type Allocation struct {
	Act        Act
	Position   int // 0-based position within the act
	Mood       string
	KoreanMood string
	Camera     string
	Narration  string
}

// Allocate walks the pool act by act, handing each scene the next unused entry.
// Positions past the end of an act's table wrap around and are tagged with a
// part counter, so no two allocations share a narration. A nil pool means the
// embedded one.
func Allocate(pool *NarrationPool, dist ActDistribution) []Allocation {
	if pool == nil {
		pool = DefaultTables().Pool
	}
	out := make([]Allocation, 0, max(dist.Total(), 0))
	for i, count := range dist {
		act := Act(i + 1)
		entries := pool.acts[i]
		for pos := 0; pos < count; pos++ {
			entry := entries[pos%len(entries)]
			narration := entry.Narration
			if pos >= len(entries) {
				narration = fmt.Sprintf("%s (파트 %d)", narration, pos+1)
			}
			out = append(out, Allocation{
				Act:        act,
				Position:   pos,
				Mood:       entry.Mood,
				KoreanMood: entry.KoreanMood,
				Camera:     entry.Camera,
				Narration:  narration,
			})
		}
	}
	return out
}

type narrationDoc struct {
	Acts []struct {
		Act     int `yaml:"act"`
		Palette []struct {
			Mood   string `yaml:"mood"`
			Korean string `yaml:"korean"`
			Camera string `yaml:"camera"`
		} `yaml:"palette"`
		Narrations []string `yaml:"narrations"`
	} `yaml:"acts"`
}

func newNarrationPool(doc narrationDoc) (*NarrationPool, error) {
	if len(doc.Acts) != ActCount {
		return nil, fmt.Errorf("expected %d acts, got %d", ActCount, len(doc.Acts))
	}
	pool := &NarrationPool{}
	seen := make(map[string]Act, ActCount*PoolSizePerAct)
	for i, act := range doc.Acts {
		if act.Act != i+1 {
			return nil, fmt.Errorf("act %d listed out of order (position %d)", act.Act, i+1)
		}
		if len(act.Narrations) != PoolSizePerAct {
			return nil, fmt.Errorf("act %d: expected %d narrations, got %d", act.Act, PoolSizePerAct, len(act.Narrations))
		}
		if len(act.Palette) == 0 {
			return nil, fmt.Errorf("act %d: empty mood palette", act.Act)
		}
		for _, p := range act.Palette {
			if strings.TrimSpace(p.Mood) == "" || strings.TrimSpace(p.Korean) == "" || strings.TrimSpace(p.Camera) == "" {
				return nil, fmt.Errorf("act %d: palette entries need mood, korean, and camera", act.Act)
			}
		}
		entries := make([]NarrationEntry, 0, PoolSizePerAct)
		for j, line := range act.Narrations {
			line = strings.TrimSpace(line)
			if line == "" {
				return nil, fmt.Errorf("act %d: narration %d is empty", act.Act, j+1)
			}
			if prev, dup := seen[line]; dup {
				return nil, fmt.Errorf("act %d: narration %q already used in act %d", act.Act, line, prev)
			}
			seen[line] = Act(act.Act)
			p := act.Palette[j%len(act.Palette)]
			entries = append(entries, NarrationEntry{
				Narration:  line,
				Mood:       p.Mood,
				KoreanMood: p.Korean,
				Camera:     p.Camera,
			})
		}
		pool.acts[i] = entries
	}
	return pool, nil
}

var (
	errEmptyTable         = errors.New("table is empty")
	errIncompleteAnalysis = errors.New("analysis missing title or act synopsis")
)
