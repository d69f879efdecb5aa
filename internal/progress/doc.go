// Package progress defines the streaming contract between collaborator
// operations and their consumers: a single tagged event stream of
// Progress, Ready, Completed, and Failed events with monotonically
// non-decreasing percentages and exactly one terminal event.
package progress
