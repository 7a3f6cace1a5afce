package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storyreel/internal/api"
	"storyreel/internal/story"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var duration float64

	cmd := &cobra.Command{
		Use:   "generate <topic or story>",
		Short: "Print a five-act scene script for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.cliLogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			generated, err := a.generator.Generate(cmd.Context(), story.GenerationRequest{
				Topic:           strings.Join(args, " "),
				DurationSeconds: duration,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ctx.jsonOutput() || !writerIsTerminal(out) {
				return writeJSON(cmd, api.StoryResponse{Success: true, Story: generated})
			}
			renderStory(out, generated)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&duration, "duration", "d", 0, "Target video length in seconds (default story.default_duration_seconds)")
	return cmd
}

func renderStory(out io.Writer, s *story.GeneratedStory) {
	fmt.Fprintf(out, "%s  [%s · %s]\n", s.Title, s.Genre, s.Source)
	fmt.Fprintf(out, "Mood: %s  Style: %s\n", s.Mood, s.Style)
	if s.Music != nil {
		fmt.Fprintf(out, "Music: %s\n", s.Music.Name)
	}
	fmt.Fprintln(out)

	titler := cases.Title(language.English)
	rows := make([][]string, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		rows = append(rows, []string{
			strconv.Itoa(scene.Index),
			fmt.Sprintf("%s (%s)", scene.Act.Name(), scene.Act.EnglishName()),
			titler.String(scene.CameraMovement),
			strconv.FormatFloat(scene.DurationSeconds, 'f', 1, 64),
			scene.Narration,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Act", "Camera", "Secs", "Narration"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "%d scenes, %.1fs total\n", s.TotalScenes, s.TotalDuration)
}
