// Package story is the narrative scene-structuring engine.
//
// A topic (or a pasted long-form story) is split into scenes across a fixed
// five-act structure: 발단, 전개, 위기, 절정, 결말. Each scene receives a mood and
// camera directive, a narration line from a non-repeating pool, and an image
// prompt assembled from keyword-driven phrase rules.
//
// # Entry Points
//
// NewGenerator / Generator.Generate: pick the legacy, long-form, or generic
// path and return a GeneratedStory.
// Distributor.Distribute: split a scene count across the acts.
// Allocate: hand each scene a pool entry.
// PhraseBank.Action / ComposePrompt: build the visual prompt.
// Composer.Compose: turn a distribution into scenes.
//
// # Data
//
// The narration pool, phrase rules, legacy tales, genres, and music library
// are YAML files embedded under data/ and parsed once at init. A malformed
// table panics; use Load to validate replacement tables.
//
// # Collaborators
//
// Analyzer, NarrationWriter, and GenreDetector are optional. Every
// collaborator failure degrades to a deterministic fallback and is logged at
// WARN; Generate only returns an error when its context is cancelled.
package story
