// Package project holds the artifact store: the Project record with each
// stage's current output, the approval set, render variant slots, and the
// SQLite persistence behind them. Artifacts are written only on a
// collaborator operation's terminal success, and only by the pipeline
// controller or the reconciliation engine.
package project
