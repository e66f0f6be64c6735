package subaru

// GroupedChanges is the commit preview: every pending mark bucketed by
// action, with the dependency-induced ones split out so the user can see
// what they asked for versus what came along.
type GroupedChanges struct {
	Install []PackageRecord
	Upgrade []PackageRecord
	Remove  []PackageRecord

	AutoInstall []PackageRecord
	AutoUpgrade []PackageRecord
	AutoRemove  []PackageRecord

	DownloadSize int64
}

// Empty reports whether nothing is pending.
func (g GroupedChanges) Empty() bool {
	return len(g.Install) == 0 && len(g.Upgrade) == 0 && len(g.Remove) == 0 &&
		len(g.AutoInstall) == 0 && len(g.AutoUpgrade) == 0 && len(g.AutoRemove) == 0
}

// Total returns the number of packages touched.
func (g GroupedChanges) Total() int {
	return len(g.Install) + len(g.Upgrade) + len(g.Remove) +
		len(g.AutoInstall) + len(g.AutoUpgrade) + len(g.AutoRemove)
}

// Changes builds the grouped view of the current marks. It reads live
// store state, so the result reflects any cascade that just ran.
func (e *Engine) Changes() GroupedChanges {
	var g GroupedChanges
	for _, rec := range e.store.AllMarked() {
		switch rec.Mark {
		case MarkInstall:
			if rec.Tag == TagDepInduced {
				g.AutoInstall = append(g.AutoInstall, rec)
			} else {
				g.Install = append(g.Install, rec)
			}
			g.DownloadSize += rec.DownloadSize
		case MarkUpgrade:
			if rec.Tag == TagDepInduced {
				g.AutoUpgrade = append(g.AutoUpgrade, rec)
			} else {
				g.Upgrade = append(g.Upgrade, rec)
			}
			g.DownloadSize += rec.DownloadSize
		case MarkRemove:
			if rec.Tag == TagDepInduced {
				g.AutoRemove = append(g.AutoRemove, rec)
			} else {
				g.Remove = append(g.Remove, rec)
			}
		}
	}
	return g
}

// Reset clears every mark and any pending proposal, returning the
// session to a clean slate without touching the system.
func (e *Engine) Reset() {
	e.UnmarkAll()
}
