package subaru

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// PackageID is the stable key a package is tracked under. All lookups and
// equality go through it; display strings are derived separately and are
// never used for bookkeeping.
type PackageID string

// BaseState is the package state as recorded on disk, before any pending
// mark is layered on top.
type BaseState uint8

const (
	StateNotInstalled BaseState = iota
	StateInstalled
	StateUpgradable
)

// Mark is a pending, not-yet-committed action attached to a package.
type Mark uint8

const (
	MarkNone Mark = iota
	MarkInstall
	MarkUpgrade
	MarkRemove
)

// IntentTag records whether a mark came from a direct user toggle or was
// added as a side effect of satisfying another mark. It only feeds
// cascade-unmark decisions and the grouped changes view, never rendering.
type IntentTag uint8

const (
	TagUserInitiated IntentTag = iota
	TagDepInduced
)

// PackageRecord is one package as the console sees it: identity, base
// state, optional pending mark, and the display metadata derived from the
// installed DB and the repository index.
type PackageRecord struct {
	ID   PackageID
	Name string // display name; never used for lookups

	Base BaseState
	Mark Mark
	Tag  IntentTag // meaningful only while Mark != MarkNone

	InstalledVersion string
	CandidateVersion string
	Revision         string
	Description      string
	DownloadSize     int64
}

// Marked reports whether the record carries a pending mark.
func (r *PackageRecord) Marked() bool {
	return r.Mark != MarkNone
}

// StatusSymbol returns the one-cell marker shown in the status column.
// The effective displayed state is the pending mark if present, else the
// base state.
func (r *PackageRecord) StatusSymbol() string {
	switch r.Mark {
	case MarkInstall:
		return "+"
	case MarkUpgrade:
		return "^"
	case MarkRemove:
		return "-"
	}
	switch r.Base {
	case StateInstalled:
		return "."
	case StateUpgradable:
		return "^"
	}
	return " "
}

// StatusColor returns the table color for the effective state.
func (r *PackageRecord) StatusColor() tcell.Color {
	switch r.Mark {
	case MarkInstall, MarkUpgrade:
		return tcell.ColorGreen
	case MarkRemove:
		return tcell.ColorRed
	}
	switch r.Base {
	case StateUpgradable:
		return tcell.ColorYellow
	case StateInstalled:
		return tcell.ColorGray
	}
	return tcell.ColorDefault
}

// compatibleMark reports whether a mark is valid for a base state.
// MarkInstall needs NotInstalled, MarkUpgrade needs Upgradable, and
// MarkRemove needs something on disk to remove.
func compatibleMark(base BaseState, mark Mark) bool {
	switch mark {
	case MarkNone:
		return true
	case MarkInstall:
		return base == StateNotInstalled
	case MarkUpgrade:
		return base == StateUpgradable
	case MarkRemove:
		return base == StateInstalled || base == StateUpgradable
	}
	return false
}

// markFor returns the applicable install-side mark for a base state, or
// MarkNone when no install/upgrade action applies.
func markFor(base BaseState) Mark {
	switch base {
	case StateNotInstalled:
		return MarkInstall
	case StateUpgradable:
		return MarkUpgrade
	}
	return MarkNone
}

// humanSize formats a byte count the way the package table shows it.
func humanSize(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	}
	return fmt.Sprintf("%d B", bytes)
}
