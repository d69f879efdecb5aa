package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelsmith/internal/config"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/progress"
	"reelsmith/internal/project"
	"reelsmith/internal/stage"
)

// stageFlags collects the optional per-stage inputs shared by advance,
// regenerate, and run.
type stageFlags struct {
	text           string
	textFile       string
	sceneCount     int
	variants       []string
	publishVariant string
	description    string
	publishAt      string
}

func (f *stageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", "Inline text input (source material or narration script)")
	cmd.Flags().StringVar(&f.textFile, "text-file", "", "Read the text input from a file")
	cmd.Flags().IntVar(&f.sceneCount, "scenes", 0, "Override the configured illustration count")
	cmd.Flags().StringSliceVar(&f.variants, "variant", nil, "Restrict a render to specific variants")
	cmd.Flags().StringVar(&f.publishVariant, "publish-variant", "", "Variant to upload (default basic)")
	cmd.Flags().StringVar(&f.description, "description", "", "Upload description")
	cmd.Flags().StringVar(&f.publishAt, "publish-at", "", "Schedule the upload (RFC3339)")
}

func (f *stageFlags) input() (pipeline.Input, error) {
	var in pipeline.Input

	in.Text = f.text
	if f.textFile != "" {
		data, err := os.ReadFile(f.textFile)
		if err != nil {
			return in, fmt.Errorf("read text file: %w", err)
		}
		in.Text = string(data)
	}
	in.SceneCount = f.sceneCount
	in.Description = f.description

	for _, raw := range f.variants {
		v, ok := project.ParseVariant(raw)
		if !ok {
			return in, fmt.Errorf("unknown variant %q", raw)
		}
		in.Variants = append(in.Variants, v)
	}
	if f.publishVariant != "" {
		v, ok := project.ParseVariant(f.publishVariant)
		if !ok {
			return in, fmt.Errorf("unknown variant %q", f.publishVariant)
		}
		in.PublishVariant = v
	}
	if f.publishAt != "" {
		at, err := time.Parse(time.RFC3339, f.publishAt)
		if err != nil {
			return in, fmt.Errorf("parse --publish-at: %w", err)
		}
		in.PublishAt = at
	}
	return in, nil
}

func newAdvanceCommand(ctx *commandContext) *cobra.Command {
	flags := &stageFlags{}
	cmd := &cobra.Command{
		Use:   "advance <project-id> <stage>",
		Short: "Run one stage, requiring every earlier artifact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStageCommand(ctx, cmd, args, flags, false)
		},
	}
	flags.register(cmd)
	return cmd
}

func newRegenerateCommand(ctx *commandContext) *cobra.Command {
	flags := &stageFlags{}
	cmd := &cobra.Command{
		Use:   "regenerate <project-id> <stage>",
		Short: "Re-run a stage, replacing its artifact on success",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStageCommand(ctx, cmd, args, flags, true)
		},
	}
	flags.register(cmd)
	return cmd
}

func runStageCommand(ctx *commandContext, cmd *cobra.Command, args []string, flags *stageFlags, regenerate bool) error {
	id, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	st, err := parseStageArg(args[1])
	if err != nil {
		return err
	}
	in, err := flags.input()
	if err != nil {
		return err
	}
	return ctx.withController(cmd.Context(), func(_ *config.Config, _ *project.Store, ctl *pipeline.Controller) error {
		var stream progress.Stream
		if regenerate {
			stream, err = ctl.Regenerate(cmd.Context(), id, st, in)
		} else {
			stream, err = ctl.Advance(cmd.Context(), id, st, in)
		}
		if err != nil {
			return err
		}
		return renderStream(cmd.OutOrStdout(), st.Label(), stream)
	})
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	flags := &stageFlags{}
	var publish bool

	cmd := &cobra.Command{
		Use:   "run <project-id>",
		Short: "Drive every remaining stage in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			in, err := flags.input()
			if err != nil {
				return err
			}
			return ctx.withController(cmd.Context(), func(cfg *config.Config, store *project.Store, ctl *pipeline.Controller) error {
				lock := flock.New(filepath.Join(cfg.Paths.LogDir, "reelsmith.lock"))
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire run lock: %w", err)
				}
				if !ok {
					return fmt.Errorf("another reelsmith run is already in progress")
				}
				defer lock.Unlock()

				return runRemaining(cmd, store, ctl, id, in, publish)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&publish, "publish", false, "Upload after rendering")
	return cmd
}

func runRemaining(cmd *cobra.Command, store *project.Store, ctl *pipeline.Controller, id int64, in pipeline.Input, publish bool) error {
	out := cmd.OutOrStdout()
	for _, st := range stage.All() {
		if st == stage.Publish && !publish {
			break
		}
		proj, err := store.GetByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		if proj.HasArtifact(st) {
			continue
		}

		stageIn := in
		// Inline text is source material; only the script stage consumes it.
		if st != stage.Script {
			stageIn.Text = ""
		}
		if st == stage.Render {
			// The run loop fires a render at most once per project. After a
			// failed auto-render the operator retries with advance or
			// regenerate rather than looping into another attempt.
			if proj.RenderAutoTriggered {
				fmt.Fprintf(out, "Render was already auto-triggered; retry it with: reelsmith advance %d render\n", id)
				break
			}
			stageIn.AutoTriggered = true
		}

		stream, err := ctl.Advance(cmd.Context(), id, st, stageIn)
		if err != nil {
			return fmt.Errorf("%s: %w", st.Label(), err)
		}
		if err := renderStream(out, st.Label(), stream); err != nil {
			return fmt.Errorf("run stopped at %s: %w", st.Label(), err)
		}
	}

	proj, err := store.GetByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Project %d: %s (%s)\n", proj.ID, proj.Status, proj.CurrentStage.Label())
	if strings.TrimSpace(proj.ErrorMessage) != "" {
		fmt.Fprintf(out, "Warnings: %s\n", proj.ErrorMessage)
	}
	return nil
}
