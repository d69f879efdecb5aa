package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/config"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/project"
	"reelsmith/internal/stage"
)

func parseProjectID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid project id %q", arg)
	}
	return id, nil
}

func parseStageArg(arg string) (stage.Stage, error) {
	st, ok := stage.Parse(arg)
	if !ok {
		return "", fmt.Errorf("unknown stage %q (one of: %s)", arg, stageNames())
	}
	return st, nil
}

func stageNames() string {
	names := ""
	for i, st := range stage.All() {
		if i > 0 {
			names += ", "
		}
		names += string(st)
	}
	return names
}

func newNewCommand(ctx *commandContext) *cobra.Command {
	var sourceURL string

	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *project.Store) error {
				proj, err := store.Create(cmd.Context(), args[0], sourceURL)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %d: %s\n", proj.ID, proj.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&sourceURL, "source", "s", "", "Source material URL to fetch the transcript from")
	return cmd
}

func newGotoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "goto <project-id> <stage>",
		Short: "Move the stage cursor without touching artifacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			st, err := parseStageArg(args[1])
			if err != nil {
				return err
			}
			return ctx.withController(cmd.Context(), func(_ *config.Config, _ *project.Store, ctl *pipeline.Controller) error {
				if err := ctl.GoTo(cmd.Context(), id, st); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Project %d now at %s\n", id, st.Label())
				return nil
			})
		},
	}
}

func newApproveCommand(ctx *commandContext, approve bool) *cobra.Command {
	use, short := "approve", "Mark a stage's artifact as reviewed"
	if !approve {
		use, short = "unapprove", "Clear a stage's review mark"
	}

	return &cobra.Command{
		Use:   use + " <project-id> <stage>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			st, err := parseStageArg(args[1])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *project.Store) error {
				proj, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if approve {
					proj.Approvals.Approve(st)
				} else {
					proj.Approvals.Unapprove(st)
				}
				if err := store.Update(cmd.Context(), proj); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", st.Label(), yesNo(proj.Approvals.IsApproved(st)))
				return nil
			})
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project's artifacts and approvals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *project.Store) error {
				proj, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Project %d: %s\n", proj.ID, proj.Title)
				fmt.Fprintf(out, "Status: %s  Stage: %s\n", proj.Status, proj.CurrentStage.Label())
				if proj.ErrorMessage != "" {
					fmt.Fprintf(out, "Last error: %s\n", proj.ErrorMessage)
				}
				if proj.PublishedURL != "" {
					fmt.Fprintf(out, "Published: %s\n", proj.PublishedURL)
				}

				rows := make([][]string, 0, len(stage.All()))
				for _, st := range stage.All() {
					rows = append(rows, []string{
						st.Label(),
						yesNo(proj.HasArtifact(st)),
						yesNo(proj.Approvals.IsApproved(st)),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Stage", "Artifact", "Approved"}, rows))
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List all projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *project.Store) error {
				projects, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(projects) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No projects")
					return nil
				}
				rows := make([][]string, 0, len(projects))
				for _, proj := range projects {
					rows = append(rows, []string{
						strconv.FormatInt(proj.ID, 10),
						proj.Title,
						string(proj.Status),
						proj.CurrentStage.Label(),
						fmt.Sprintf("%.0f%%", proj.ProgressPercent),
						proj.UpdatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Stage", "Progress", "Updated"}, rows, 1, 5))
				return nil
			})
		},
	}
}

func newSegmentsCommand(ctx *commandContext) *cobra.Command {
	segmentsCmd := &cobra.Command{
		Use:   "segments",
		Short: "Inspect and regenerate narration segments",
	}

	listCmd := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's narration segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *project.Store) error {
				proj, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(proj.AudioSegments) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No audio segments; run the audio stage first")
					return nil
				}
				rows := make([][]string, 0, len(proj.AudioSegments))
				for _, seg := range proj.AudioSegments {
					rows = append(rows, []string{
						strconv.Itoa(seg.Index),
						fmt.Sprintf("%.2fs", seg.DurationSec),
						seg.Text,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"#", "Duration", "Text"}, rows, 1, 2))
				fmt.Fprintf(out, "Total narration: %.2fs\n", proj.TotalAudioDuration())
				return nil
			})
		},
	}

	var editedText string
	regenCmd := &cobra.Command{
		Use:   "regen <project-id> <index>",
		Short: "Re-synthesize a single narration segment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid segment index %q", args[1])
			}
			return ctx.withController(cmd.Context(), func(_ *config.Config, _ *project.Store, ctl *pipeline.Controller) error {
				stream, err := ctl.RegenerateSegment(cmd.Context(), id, index, editedText)
				if err != nil {
					return err
				}
				return renderStream(cmd.OutOrStdout(), fmt.Sprintf("segment %d", index), stream)
			})
		},
	}
	regenCmd.Flags().StringVarP(&editedText, "text", "t", "", "Replacement text for the segment")

	segmentsCmd.AddCommand(listCmd)
	segmentsCmd.AddCommand(regenCmd)
	return segmentsCmd
}

func newVariantsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "variants <project-id>",
		Short: "Show rendered variant outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *project.Store) error {
				proj, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(project.Variants()))
				for _, v := range project.Variants() {
					ref := proj.VariantRef(v)
					rows = append(rows, []string{string(v), yesNo(ref != ""), ref})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"Variant", "Rendered", "Reference"}, rows))
				if proj.RenderAutoTriggered {
					fmt.Fprintln(out, "Render was auto-triggered by a pipeline run")
				}
				return nil
			})
		},
	}
}
