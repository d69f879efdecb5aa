// Package render drives the video rendering sub-pipeline. Each variant
// (basic plus the effect sets) moves through its own state machine and is
// stored independently, so a failed or in-progress variant never blocks
// rendering or downloading another.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
	"reelsmith/internal/project"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// State is one step of a variant's render lifecycle. A failed run records
// its reason and returns the variant to StateNotStarted so it can be
// re-rendered without touching its siblings.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StateReady      State = "ready"
	StateComplete   State = "complete"
)

// VariantStatus is a snapshot of one variant's render lifecycle.
type VariantStatus struct {
	Variant project.Variant
	State   State
	Percent float64
	// PreviewRef holds the partial artifact surfaced by a Ready event. It
	// survives a later failure since the preview stays valid and usable.
	PreviewRef  string
	FinalRef    string
	LastFailure string
}

// Input carries the shared timeline inputs every render pass re-uses.
type Input struct {
	ProjectID    int64
	AudioRef     string
	CaptionsText string
	Timeline     []project.ImagePrompt
	Images       []project.ImageRef
	OutputDir    string
}

// Request is one render pass: the shared inputs plus the variant tag and
// its effect filter expressions.
type Request struct {
	Input
	Variant       project.Variant
	EffectFilters []string
}

// Renderer runs a single render pass and returns the final artifact
// reference. A Ready report carrying a reference string surfaces a playable
// preview before the pass finishes.
type Renderer interface {
	RenderVariant(ctx context.Context, req Request, rep progress.Reporter) (string, error)
}

// Result aggregates a multi-variant run. References holds the final
// reference per completed variant; Failures holds the reason per failed
// variant. A partial result is a success with flags, not a total failure.
type Result struct {
	References map[project.Variant]string
	Failures   map[project.Variant]string
}

// Complete reports whether every requested variant finished.
func (r Result) Complete() bool {
	return len(r.Failures) == 0
}

// Coordinator tracks per-variant render state and sequences composite runs.
type Coordinator struct {
	renderer Renderer
	effects  map[project.Variant][]string
	logger   *slog.Logger

	mu       sync.Mutex
	statuses map[project.Variant]*VariantStatus
}

// New builds a coordinator. The effects map provides ffmpeg filter
// expressions per variant; variants absent from the map render unfiltered.
func New(renderer Renderer, effects map[project.Variant][]string, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	statuses := make(map[project.Variant]*VariantStatus)
	for _, v := range project.Variants() {
		statuses[v] = &VariantStatus{Variant: v, State: StateNotStarted}
	}
	return &Coordinator{
		renderer: renderer,
		effects:  effects,
		logger:   logging.NewComponentLogger(logger, "render"),
		statuses: statuses,
	}
}

// Status returns a snapshot of one variant's lifecycle.
func (c *Coordinator) Status(v project.Variant) VariantStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.statuses[v]; ok {
		return *st
	}
	return VariantStatus{Variant: v, State: StateNotStarted}
}

// Statuses returns snapshots for all variants in canonical order.
func (c *Coordinator) Statuses() []VariantStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]VariantStatus, 0, len(c.statuses))
	for _, v := range project.Variants() {
		if st, ok := c.statuses[v]; ok {
			out = append(out, *st)
		}
	}
	return out
}

// RenderVariant runs one pass for a single variant. A second call while the
// same variant is running fails with an in-progress error; other variants
// are unaffected either way.
func (c *Coordinator) RenderVariant(ctx context.Context, in Input, v project.Variant, rep progress.Reporter) (string, error) {
	if rep == nil {
		rep = progress.NopReporter{}
	}
	if err := c.markRunning(v); err != nil {
		return "", err
	}

	c.logger.Info("render pass starting",
		logging.String(logging.FieldVariant, string(v)),
		logging.Int64(logging.FieldProjectID, in.ProjectID))

	req := Request{Input: in, Variant: v, EffectFilters: c.effects[v]}
	ref, err := c.renderer.RenderVariant(ctx, req, &statusReporter{coord: c, variant: v, next: rep})
	if err != nil {
		c.markFailed(v, err)
		c.logger.Error("render pass failed",
			logging.String(logging.FieldVariant, string(v)),
			logging.Error(err))
		return "", services.Wrap(services.ErrCollaboratorFailed,
			string(stage.Render), "render "+string(v), "", err)
	}

	c.markComplete(v, ref)
	c.logger.Info("render pass complete",
		logging.String(logging.FieldVariant, string(v)),
		logging.String("output", ref))
	return ref, nil
}

// Composite renders the given variants sequentially, by policy rather than
// dependency, so a shared rendering backend is never hit twice at once.
// Progress is mapped onto one continuous 0-100 bar across all passes, and
// each completed pass is surfaced through a Ready report while later passes
// run. A failed pass is recorded and the run continues with the remaining
// variants.
func (c *Coordinator) Composite(ctx context.Context, in Input, variants []project.Variant, rep progress.Reporter) (Result, error) {
	if rep == nil {
		rep = progress.NopReporter{}
	}
	if len(variants) == 0 {
		variants = project.Variants()
	}

	result := Result{
		References: make(map[project.Variant]string),
		Failures:   make(map[project.Variant]string),
	}
	span := 100 / float64(len(variants))
	var lastErr error

	for i, v := range variants {
		passRep := progress.Scaled(rep, float64(i)*span, span)
		ref, err := c.RenderVariant(ctx, in, v, passRep)
		if err != nil {
			result.Failures[v] = services.Message(err)
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		result.References[v] = ref
		if i < len(variants)-1 {
			rep.Ready(snapshotRefs(result.References))
		}
		rep.Progress(float64(i+1)*span, fmt.Sprintf("%s variant complete", v))
	}

	switch {
	case len(result.References) == 0:
		return result, services.Wrap(services.ErrCollaboratorFailed,
			string(stage.Render), "composite", "all variants failed", lastErr)
	case len(result.Failures) > 0:
		return result, services.Wrap(services.ErrPartialVariantFailure,
			string(stage.Render), "composite",
			"failed variants: "+failureList(result.Failures), lastErr)
	default:
		return result, nil
	}
}

func (c *Coordinator) markRunning(v project.Variant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.statuses[v]
	if !ok {
		st = &VariantStatus{Variant: v}
		c.statuses[v] = st
	}
	if st.State == StateRunning || st.State == StateReady {
		return services.Wrap(services.ErrOperationInProgress,
			string(stage.Render), "render "+string(v),
			"variant render already running", nil)
	}
	st.State = StateRunning
	st.Percent = 0
	st.LastFailure = ""
	return nil
}

func (c *Coordinator) markComplete(v project.Variant, ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.statuses[v]
	st.State = StateComplete
	st.Percent = 100
	st.FinalRef = ref
}

func (c *Coordinator) markFailed(v project.Variant, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.statuses[v]
	st.State = StateNotStarted
	st.LastFailure = err.Error()
}

// statusReporter mirrors a pass's reports into the coordinator's status
// table before forwarding them.
type statusReporter struct {
	coord   *Coordinator
	variant project.Variant
	next    progress.Reporter
}

func (r *statusReporter) Progress(percent float64, message string) {
	r.coord.mu.Lock()
	if st, ok := r.coord.statuses[r.variant]; ok && percent > st.Percent {
		st.Percent = percent
	}
	r.coord.mu.Unlock()
	r.next.Progress(percent, message)
}

func (r *statusReporter) Ready(partial any) {
	r.coord.mu.Lock()
	if st, ok := r.coord.statuses[r.variant]; ok {
		if st.State == StateRunning {
			st.State = StateReady
		}
		if ref, ok := partial.(string); ok && ref != "" {
			st.PreviewRef = ref
		}
	}
	r.coord.mu.Unlock()
	r.next.Ready(partial)
}

func snapshotRefs(refs map[project.Variant]string) map[project.Variant]string {
	out := make(map[project.Variant]string, len(refs))
	for v, ref := range refs {
		out[v] = ref
	}
	return out
}

func failureList(failures map[project.Variant]string) string {
	names := make([]string, 0, len(failures))
	for v := range failures {
		names = append(names, string(v))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
