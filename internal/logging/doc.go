// Package logging centralizes slog construction and the structured field
// vocabulary shared across the pipeline: project id, stage, variant, and
// correlation id attributes derived from context, plus attr helpers and a
// no-op logger for tests.
package logging
