package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
	"reelsmith/internal/project"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// RegenerateSegment re-synthesizes a single audio segment, optionally with
// edited text, and swaps in only that segment. All other segments keep
// their references byte for byte; the aggregate duration is recomputed from
// the full set and the image plan timings are repaired against it.
func (c *Controller) RegenerateSegment(ctx context.Context, projectID int64, index int, editedText string) (progress.Stream, error) {
	proj, err := c.store.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if missing, ok := proj.MissingBefore(stage.Audio); ok {
		return nil, services.Wrap(services.ErrPreconditionNotMet,
			string(stage.Audio), "regenerate segment",
			fmt.Sprintf("missing %s artifact", missing), nil)
	}

	var target *project.AudioSegment
	for i := range proj.AudioSegments {
		if proj.AudioSegments[i].Index == index {
			target = &proj.AudioSegments[i]
			break
		}
	}
	if target == nil {
		return nil, services.Wrap(services.ErrValidation,
			string(stage.Audio), "regenerate segment",
			fmt.Sprintf("no segment with index %d", index), nil)
	}

	if err := c.acquire(projectID, "regenerate segment", stage.Audio); err != nil {
		return nil, err
	}

	ctx = services.WithProjectID(ctx, projectID)
	ctx = services.WithStage(ctx, string(stage.Audio))
	ctx = services.WithRequestID(ctx, uuid.New().String())

	seg := *target
	if editedText != "" {
		seg.Text = editedText
	}

	proj.Status = project.StatusGenerating
	proj.InitProgress(stage.Audio.Label(), fmt.Sprintf("regenerating segment %d", index))
	if err := c.store.Update(ctx, proj); err != nil {
		c.release(projectID)
		return nil, err
	}

	emitter := progress.NewEmitter()
	go func() {
		defer c.release(projectID)
		logger := logging.WithContext(ctx, c.logger)
		logger.Info("segment regeneration starting",
			logging.String(logging.FieldEventType, eventStageStart),
			logging.Int("segment", index))

		replaced, err := c.collab.Speech.SynthesizeSegment(ctx, seg, c.persisting(ctx, proj, stage.Audio, emitter))
		if err != nil {
			c.finishFailure(ctx, proj, stage.Audio, c.collabErr(stage.Audio, "regenerate segment", err), emitter, logger)
			return
		}
		replaced.Index = index
		if err := proj.ReplaceSegment(replaced); err != nil {
			c.finishFailure(ctx, proj, stage.Audio, services.Wrap(services.ErrValidation,
				string(stage.Audio), "regenerate segment", "", err), emitter, logger)
			return
		}
		c.reconcilePlan(proj)

		proj.SetProgress(stage.Audio.Label(), "segment complete", 100)
		if err := c.store.Update(ctx, proj); err != nil {
			c.finishFailure(ctx, proj, stage.Audio, err, emitter, logger)
			return
		}
		logger.Info("segment regeneration complete",
			logging.String(logging.FieldEventType, eventStageComplete),
			logging.Int("segment", index))
		emitter.Complete(replaced, fmt.Sprintf("segment %d complete", index))
	}()
	return emitter.Events(), nil
}
