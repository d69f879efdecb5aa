package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reelsmith/internal/approval"
	"reelsmith/internal/config"
	"reelsmith/internal/stage"
)

// ErrNotFound indicates the requested project does not exist.
var ErrNotFound = errors.New("project not found")

// Store manages project persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the project database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.WorkspaceDir, "projects.db")
	return OpenPath(dbPath)
}

// OpenPath connects to the database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new project at the script stage.
func (s *Store) Create(ctx context.Context, title, sourceURL string) (*Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("project title required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO projects (
            title, source_url, status, current_stage, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		title,
		strings.TrimSpace(sourceURL),
		StatusNew,
		stage.Script,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

const projectColumns = `id, title, source_url, status, current_stage,
    raw_transcript, script_text, audio_segments_json, audio_ref,
    captions_text, image_plan_json, images_json,
    basic_video_ref, effect_a_video_ref, effect_b_video_ref,
    published_id, published_url, approvals_json, render_auto_triggered,
    error_message, progress_stage, progress_percent, progress_message,
    created_at, updated_at`

// GetByID fetches a project by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	proj, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return proj, err
}

// List returns all projects ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, proj)
	}
	return projects, rows.Err()
}

// Update persists every mutable field of the project.
func (s *Store) Update(ctx context.Context, p *Project) error {
	if p == nil {
		return errors.New("project required")
	}
	p.UpdatedAt = time.Now().UTC()

	segments, err := marshalJSONColumn(p.AudioSegments)
	if err != nil {
		return fmt.Errorf("marshal audio segments: %w", err)
	}
	plan, err := marshalJSONColumn(p.ImagePlan)
	if err != nil {
		return fmt.Errorf("marshal image plan: %w", err)
	}
	images, err := marshalJSONColumn(p.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}
	approvals, err := marshalJSONColumn(p.Approvals)
	if err != nil {
		return fmt.Errorf("marshal approvals: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET
            title = ?, source_url = ?, status = ?, current_stage = ?,
            raw_transcript = ?, script_text = ?, audio_segments_json = ?, audio_ref = ?,
            captions_text = ?, image_plan_json = ?, images_json = ?,
            basic_video_ref = ?, effect_a_video_ref = ?, effect_b_video_ref = ?,
            published_id = ?, published_url = ?, approvals_json = ?, render_auto_triggered = ?,
            error_message = ?, progress_stage = ?, progress_percent = ?, progress_message = ?,
            updated_at = ?
        WHERE id = ?`,
		p.Title, p.SourceURL, p.Status, p.CurrentStage,
		p.RawTranscript, p.ScriptText, segments, p.AudioRef,
		p.CaptionsText, plan, images,
		p.BasicVideoRef, p.EffectAVideoRef, p.EffectBVideoRef,
		p.PublishedID, p.PublishedURL, approvals, boolToInt(p.RenderAutoTriggered),
		p.ErrorMessage, p.ProgressStage, p.ProgressPercent, p.ProgressMessage,
		p.UpdatedAt.Format(time.RFC3339Nano),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, p.ID)
	}
	return nil
}

// Abandon marks a project abandoned; artifacts remain readable.
func (s *Store) Abandon(ctx context.Context, id int64) error {
	proj, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	proj.Status = StatusAbandoned
	return s.Update(ctx, proj)
}

// Summary describes aggregated project counts per lifecycle state.
type Summary struct {
	Total      int
	New        int
	Generating int
	Failed     int
	Published  int
	Abandoned  int
}

// Summarize returns project counts grouped by status.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM projects GROUP BY status`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize projects: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.Total += count
		switch status {
		case StatusNew:
			summary.New = count
		case StatusGenerating:
			summary.Generating = count
		case StatusFailed:
			summary.Failed = count
		case StatusPublished:
			summary.Published = count
		case StatusAbandoned:
			summary.Abandoned = count
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		p             Project
		segmentsJSON  string
		planJSON      string
		imagesJSON    string
		approvalsJSON string
		autoTriggered int
		createdAt     string
		updatedAt     string
		status        string
		currentStage  string
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.SourceURL, &status, &currentStage,
		&p.RawTranscript, &p.ScriptText, &segmentsJSON, &p.AudioRef,
		&p.CaptionsText, &planJSON, &imagesJSON,
		&p.BasicVideoRef, &p.EffectAVideoRef, &p.EffectBVideoRef,
		&p.PublishedID, &p.PublishedURL, &approvalsJSON, &autoTriggered,
		&p.ErrorMessage, &p.ProgressStage, &p.ProgressPercent, &p.ProgressMessage,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = Status(status)
	p.CurrentStage = stage.Stage(currentStage)
	p.RenderAutoTriggered = autoTriggered != 0
	if err := unmarshalJSONColumn(segmentsJSON, &p.AudioSegments); err != nil {
		return nil, fmt.Errorf("decode audio segments: %w", err)
	}
	if err := unmarshalJSONColumn(planJSON, &p.ImagePlan); err != nil {
		return nil, fmt.Errorf("decode image plan: %w", err)
	}
	if err := unmarshalJSONColumn(imagesJSON, &p.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	if approvalsJSON == "" {
		p.Approvals = approval.NewSet()
	} else if err := json.Unmarshal([]byte(approvalsJSON), &p.Approvals); err != nil {
		return nil, fmt.Errorf("decode approvals: %w", err)
	}
	if p.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	return &p, nil
}

func marshalJSONColumn(value any) (string, error) {
	switch v := value.(type) {
	case []AudioSegment:
		if len(v) == 0 {
			return "", nil
		}
	case []ImagePrompt:
		if len(v) == 0 {
			return "", nil
		}
	case []ImageRef:
		if len(v) == 0 {
			return "", nil
		}
	case approval.Set:
		if len(v) == 0 {
			return "", nil
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalJSONColumn[T any](raw string, dest *[]T) error {
	if strings.TrimSpace(raw) == "" {
		*dest = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
