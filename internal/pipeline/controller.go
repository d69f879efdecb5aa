// Package pipeline hosts the stage controller, the state machine that owns
// a project's progression through the production stages. It enforces
// forward-progression preconditions, runs at most one collaborator
// operation per project at a time, streams collaborator progress to the
// caller, and is the only writer of stage artifacts besides the
// reconciliation hook it invokes.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
	"reelsmith/internal/project"
	"reelsmith/internal/reconcile"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

const (
	eventStageStart    = "stage_start"
	eventStageComplete = "stage_complete"
	eventStageFailure  = "stage_failure"
)

// Controller drives stage execution for projects.
type Controller struct {
	store    *project.Store
	collab   Collaborators
	cfg      *config.Config
	logger   *slog.Logger
	notifier Notifier

	mu       sync.Mutex
	inFlight map[int64]string
}

// New builds a controller. notifier may be nil.
func New(store *project.Store, collab Collaborators, cfg *config.Config, logger *slog.Logger, notifier Notifier) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		store:    store,
		collab:   collab,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		notifier: notifier,
		inFlight: make(map[int64]string),
	}
}

// GoTo changes the project's current stage without touching any artifact.
// It is unconditional navigation.
func (c *Controller) GoTo(ctx context.Context, projectID int64, st stage.Stage) error {
	if !st.Known() {
		return services.Wrap(services.ErrValidation, string(st), "goto", "unknown stage", nil)
	}
	proj, err := c.store.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	proj.CurrentStage = st
	return c.store.Update(ctx, proj)
}

// Advance runs the collaborator for st and swaps in its artifact on
// success. It fails without invoking the collaborator when any stage before
// st has no artifact, or when another operation is already in flight for
// the project.
func (c *Controller) Advance(ctx context.Context, projectID int64, st stage.Stage, in Input) (progress.Stream, error) {
	return c.run(ctx, projectID, st, in, "advance")
}

// Regenerate re-runs st's collaborator with possibly edited input and
// overwrites the stage artifact on success. Downstream artifacts whose
// count or timing invariant the new artifact violates are repaired by the
// reconciliation hook before the operation reports completion. Approval
// flags are left untouched.
func (c *Controller) Regenerate(ctx context.Context, projectID int64, st stage.Stage, in Input) (progress.Stream, error) {
	return c.run(ctx, projectID, st, in, "regenerate")
}

func (c *Controller) run(ctx context.Context, projectID int64, st stage.Stage, in Input, op string) (progress.Stream, error) {
	if !st.Known() {
		return nil, services.Wrap(services.ErrValidation, string(st), op, "unknown stage", nil)
	}
	proj, err := c.store.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if missing, ok := proj.MissingBefore(st); ok {
		return nil, services.Wrap(services.ErrPreconditionNotMet,
			string(st), op, fmt.Sprintf("missing %s artifact", missing), nil)
	}
	if err := c.acquire(projectID, op, st); err != nil {
		return nil, err
	}

	correlationID := uuid.New().String()
	ctx = services.WithProjectID(ctx, projectID)
	ctx = services.WithStage(ctx, string(st))
	ctx = services.WithRequestID(ctx, correlationID)

	proj.Status = project.StatusGenerating
	proj.CurrentStage = st
	proj.InitProgress(st.Label(), op+" starting")
	if err := c.store.Update(ctx, proj); err != nil {
		c.release(projectID)
		return nil, err
	}

	emitter := progress.NewEmitter()
	go c.execute(ctx, proj, st, in, op, emitter)
	return emitter.Events(), nil
}

func (c *Controller) execute(ctx context.Context, proj *project.Project, st stage.Stage, in Input, op string, emitter *progress.Emitter) {
	defer c.release(proj.ID)

	logger := logging.WithContext(ctx, c.logger)
	logger.Info("stage operation starting",
		logging.String(logging.FieldEventType, eventStageStart),
		logging.String("operation", op))

	rep := c.persisting(ctx, proj, st, emitter)
	artifact, err := c.runStage(ctx, proj, st, in, rep)
	if err != nil {
		c.finishFailure(ctx, proj, st, err, emitter, logger)
		return
	}

	if repaired := c.reconcilePlan(proj); repaired {
		logger.Info("image plan reconciled against produced images",
			logging.Int("plan_entries", len(proj.ImagePlan)))
	}

	proj.SetProgress(st.Label(), "complete", 100)
	if st == stage.Publish {
		proj.Status = project.StatusPublished
	}
	if err := c.store.Update(ctx, proj); err != nil {
		c.finishFailure(ctx, proj, st, err, emitter, logger)
		return
	}

	logger.Info("stage operation complete",
		logging.String(logging.FieldEventType, eventStageComplete),
		logging.String("operation", op))
	if c.notifier != nil {
		if st == stage.Publish {
			c.notifier.PublishComplete(ctx, proj.ID, proj.PublishedURL)
		} else {
			c.notifier.StageComplete(ctx, proj.ID, st.Label())
		}
	}
	emitter.Complete(artifact, st.Label()+" complete")
}

func (c *Controller) finishFailure(ctx context.Context, proj *project.Project, st stage.Stage, err error, emitter *progress.Emitter, logger *slog.Logger) {
	proj.SetFailed(services.Message(err))
	if updateErr := c.store.Update(ctx, proj); updateErr != nil {
		logger.Error("persisting failure state", logging.Error(updateErr))
	}
	logger.Error("stage operation failed",
		logging.String(logging.FieldEventType, eventStageFailure),
		logging.Error(err))
	if c.notifier != nil {
		c.notifier.OperationFailed(ctx, proj.ID, st.Label(), services.Message(err))
	}
	emitter.Fail(err)
}

// runStage invokes the stage's collaborator and applies the produced
// artifact to the project. Artifacts are complete-value swaps; a failing
// collaborator leaves the stored artifact untouched.
func (c *Controller) runStage(ctx context.Context, proj *project.Project, st stage.Stage, in Input, rep progress.Reporter) (any, error) {
	switch st {
	case stage.Script:
		return c.runScript(ctx, proj, in, rep)
	case stage.Audio:
		return c.runAudio(ctx, proj, in, rep)
	case stage.Captions:
		return c.runCaptions(ctx, proj, rep)
	case stage.ImagePlan:
		return c.runImagePlan(ctx, proj, in, rep)
	case stage.Images:
		return c.runImages(ctx, proj, rep)
	case stage.Render:
		return c.runRender(ctx, proj, in, rep)
	case stage.Publish:
		return c.runPublish(ctx, proj, in, rep)
	default:
		return nil, services.Wrap(services.ErrValidation, string(st), "run", "unknown stage", nil)
	}
}

func (c *Controller) runScript(ctx context.Context, proj *project.Project, in Input, rep progress.Reporter) (any, error) {
	source := strings.TrimSpace(in.Text)
	if source == "" {
		source = proj.RawTranscript
	}
	if source == "" && proj.SourceURL != "" {
		fetched, err := c.collab.Transcript.Fetch(ctx, proj.SourceURL, progress.Scaled(rep, 0, 40))
		if err != nil {
			return nil, c.collabErr(stage.Script, "fetch transcript", err)
		}
		proj.RawTranscript = fetched
		source = fetched
	}
	if source == "" {
		return nil, services.Wrap(services.ErrValidation, string(stage.Script), "write script",
			"no source text: provide input text or a source URL", nil)
	}

	script, err := c.collab.Script.WriteScript(ctx, source, progress.Scaled(rep, 40, 60))
	if err != nil {
		return nil, c.collabErr(stage.Script, "write script", err)
	}
	proj.ScriptText = script
	return script, nil
}

func (c *Controller) runAudio(ctx context.Context, proj *project.Project, in Input, rep progress.Reporter) (any, error) {
	script := strings.TrimSpace(in.Text)
	if script == "" {
		script = proj.ScriptText
	}
	segments, combinedRef, err := c.collab.Speech.Synthesize(ctx, script, rep)
	if err != nil {
		return nil, c.collabErr(stage.Audio, "synthesize", err)
	}
	proj.AudioSegments = segments
	proj.AudioRef = combinedRef
	return segments, nil
}

func (c *Controller) runCaptions(ctx context.Context, proj *project.Project, rep progress.Reporter) (any, error) {
	captions, err := c.collab.Captions.Transcribe(ctx, proj.AudioRef, proj.AudioSegments, rep)
	if err != nil {
		return nil, c.collabErr(stage.Captions, "transcribe", err)
	}
	proj.CaptionsText = captions
	return captions, nil
}

func (c *Controller) runImagePlan(ctx context.Context, proj *project.Project, in Input, rep progress.Reporter) (any, error) {
	count := in.SceneCount
	if count <= 0 {
		count = c.cfg.ImageGen.SceneCount
	}
	plan, err := c.collab.Scenes.PlanScenes(ctx, proj.ScriptText, proj.TotalAudioDuration(), count, rep)
	if err != nil {
		return nil, c.collabErr(stage.ImagePlan, "plan scenes", err)
	}
	proj.ImagePlan = plan
	return plan, nil
}

func (c *Controller) runImages(ctx context.Context, proj *project.Project, rep progress.Reporter) (any, error) {
	refs, err := c.collab.Images.Generate(ctx, proj.ImagePlan, rep)
	if err != nil {
		return nil, c.collabErr(stage.Images, "generate", err)
	}
	if len(refs) == 0 {
		return nil, services.Wrap(services.ErrCollaboratorFailed,
			string(stage.Images), "generate", "no images produced", nil)
	}
	proj.Images = refs
	return refs, nil
}

func (c *Controller) runRender(ctx context.Context, proj *project.Project, in Input, rep progress.Reporter) (any, error) {
	input := render.Input{
		ProjectID:    proj.ID,
		AudioRef:     proj.AudioRef,
		CaptionsText: proj.CaptionsText,
		Timeline:     proj.ImagePlan,
		Images:       proj.Images,
		OutputDir:    filepath.Join(c.cfg.Paths.WorkspaceDir, "renders", fmt.Sprint(proj.ID)),
	}
	if in.AutoTriggered {
		proj.RenderAutoTriggered = true
	}

	result, err := c.collab.Renderer.Composite(ctx, input, in.Variants, rep)
	for v, ref := range result.References {
		proj.SetVariantRef(v, ref)
	}
	switch {
	case err == nil:
		proj.ErrorMessage = ""
		return result, nil
	case result.Complete() || len(result.References) == 0:
		return nil, err
	default:
		// Some variants rendered. Keep their references, surface the
		// failed ones as flags rather than failing the stage.
		proj.ErrorMessage = services.Message(err)
		return result, nil
	}
}

func (c *Controller) runPublish(ctx context.Context, proj *project.Project, in Input, rep progress.Reporter) (any, error) {
	variant := in.PublishVariant
	if variant == "" {
		variant = project.VariantBasic
	}
	ref := proj.VariantRef(variant)
	if ref == "" {
		return nil, services.Wrap(services.ErrValidation, string(stage.Publish), "upload",
			fmt.Sprintf("variant %s has no rendered video", variant), nil)
	}
	req := PublishRequest{
		Title:       proj.Title,
		Description: in.Description,
		VideoRef:    ref,
		Variant:     variant,
		PublishAt:   in.PublishAt,
	}
	result, err := c.collab.Publisher.Publish(ctx, req, rep)
	if err != nil {
		return nil, c.collabErr(stage.Publish, "upload", err)
	}
	proj.PublishedID = result.VideoID
	proj.PublishedURL = result.URL
	return result, nil
}

// reconcilePlan repairs the image plan when its entry count or timings no
// longer match the produced images and the current audio duration. It only
// acts once images exist; repairs before then would erase the plan.
func (c *Controller) reconcilePlan(proj *project.Project) bool {
	if len(proj.Images) == 0 || len(proj.ImagePlan) == 0 {
		return false
	}
	plan, repaired, err := reconcile.Apply(proj.ImagePlan, len(proj.Images), proj.TotalAudioDuration())
	if err != nil || !repaired {
		return false
	}
	proj.ImagePlan = plan
	return true
}

func (c *Controller) collabErr(st stage.Stage, op string, err error) error {
	return services.Wrap(services.ErrCollaboratorFailed, string(st), op, "", err)
}

func (c *Controller) acquire(projectID int64, op string, st stage.Stage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if active, ok := c.inFlight[projectID]; ok {
		return services.Wrap(services.ErrOperationInProgress,
			string(st), op, fmt.Sprintf("%s already running", active), nil)
	}
	c.inFlight[projectID] = op + " " + string(st)
	return nil
}

func (c *Controller) release(projectID int64) {
	c.mu.Lock()
	delete(c.inFlight, projectID)
	c.mu.Unlock()
}

// persisting wraps the emitter so progress also lands in the project's
// progress columns. Writes are thinned to five-point steps to keep the
// store out of the hot path.
func (c *Controller) persisting(ctx context.Context, proj *project.Project, st stage.Stage, emitter *progress.Emitter) progress.Reporter {
	return &persistingReporter{
		ctx:     ctx,
		ctrl:    c,
		proj:    proj,
		label:   st.Label(),
		emitter: emitter,
	}
}

type persistingReporter struct {
	ctx     context.Context
	ctrl    *Controller
	proj    *project.Project
	label   string
	emitter *progress.Emitter

	mu        sync.Mutex
	persisted float64
}

func (r *persistingReporter) Progress(percent float64, message string) {
	r.emitter.Progress(percent, message)
	r.mu.Lock()
	defer r.mu.Unlock()
	if percent-r.persisted < 5 {
		return
	}
	r.persisted = percent
	r.proj.SetProgress(r.label, message, percent)
	if err := r.ctrl.store.Update(r.ctx, r.proj); err != nil {
		logging.WithContext(r.ctx, r.ctrl.logger).Warn("persisting progress",
			logging.Error(err))
	}
}

func (r *persistingReporter) Ready(partial any) {
	r.emitter.Ready(partial)
}
