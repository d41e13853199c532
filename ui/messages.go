package ui

import "github.com/lepinkainen/iadl/download"

// TUI Message Types for download progress
type SnapshotMsg struct {
	Snapshot download.Snapshot
	Final    bool // last snapshot of the run
}
