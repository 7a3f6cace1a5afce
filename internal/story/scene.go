package story

// NarrationSource records where a scene's spoken line came from.
type NarrationSource string

const (
	NarrationFromPool   NarrationSource = "pool"
	NarrationFromLLM    NarrationSource = "llm"
	NarrationFromLegacy NarrationSource = "legacy"
)

// Source records which generation path produced a story.
type Source string

const (
	SourceLegacy   Source = "legacy"
	SourceGeneric  Source = "generic"
	SourceLongForm Source = "longform"
)

// Scene is the unit of generated output.
type Scene struct {
	Index             int             `json:"scene_number"`
	Act               Act             `json:"act"`
	ActName           string          `json:"act_name"`
	Title             string          `json:"title"`
	Mood              string          `json:"mood"`
	KoreanMood        string          `json:"korean_mood,omitempty"`
	CameraMovement    string          `json:"camera_movement"`
	Narration         string          `json:"narration"`
	VisualDescription string          `json:"description"`
	KoreanDescription string          `json:"korean_description"`
	DurationSeconds   float64         `json:"duration"`
	NarrationSource   NarrationSource `json:"narration_source"`
}

// GenerationRequest is one call into the engine.
type GenerationRequest struct {
	Topic           string  `json:"prompt"`
	DurationSeconds float64 `json:"duration"`
}

// GeneratedStory is the engine's output.
type GeneratedStory struct {
	Title           string   `json:"title"`
	Genre           string   `json:"genre"`
	TotalScenes     int      `json:"total_scenes"`
	TotalDuration   float64  `json:"total_duration"`
	Style           string   `json:"style"`
	Mood            string   `json:"mood"`
	MusicSuggestion string   `json:"music_suggestion"`
	Source          Source   `json:"source"`
	Synopsis        []string `json:"synopsis,omitempty"`
	Music           *Track   `json:"music,omitempty"`
	Scenes          []Scene  `json:"scenes"`
}

// Distribution recomputes the per-act scene counts from the scenes.
func (s *GeneratedStory) Distribution() ActDistribution {
	var dist ActDistribution
	for _, scene := range s.Scenes {
		if scene.Act.Valid() {
			dist[scene.Act-1]++
		}
	}
	return dist
}
