// Package services defines shared utilities consumed by the pipeline
// controller and the external collaborator clients.
//
// Key responsibilities:
//   - Context helpers that stamp project IDs, stage names, render variants,
//     and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failures
//     actionable: every surfaced error names its stage and underlying
//     reason.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
