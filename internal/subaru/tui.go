package subaru

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type consoleFilter int

const (
	filterAll consoleFilter = iota
	filterUpgradable
	filterMarked
	filterInstalled
	filterAvailable
)

func (f consoleFilter) String() string {
	switch f {
	case filterUpgradable:
		return "Upgradable"
	case filterMarked:
		return "Marked"
	case filterInstalled:
		return "Installed"
	case filterAvailable:
		return "Not installed"
	}
	return "All"
}

type sortOrder int

const (
	sortNameAsc sortOrder = iota
	sortNameDesc
	sortSizeAsc
	sortSizeDesc
	sortStatusAsc
	sortStatusDesc
)

func (s sortOrder) String() string {
	switch s {
	case sortNameDesc:
		return "name desc"
	case sortSizeAsc:
		return "size"
	case sortSizeDesc:
		return "size desc"
	case sortStatusAsc:
		return "status"
	case sortStatusDesc:
		return "status desc"
	}
	return "name"
}

// statusRank orders records the way the status column reads: marks
// first, then upgradable, installed, available.
func statusRank(r PackageRecord) int {
	switch {
	case r.Mark == MarkInstall:
		return 0
	case r.Mark == MarkUpgrade:
		return 1
	case r.Mark == MarkRemove:
		return 2
	case r.Base == StateUpgradable:
		return 3
	case r.Base == StateInstalled:
		return 4
	}
	return 5
}

// sortRecords orders the visible rows. Ties always fall back to the
// ascending name so rows do not jump around between refreshes.
func sortRecords(recs []PackageRecord, order sortOrder) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		var less bool
		switch order {
		case sortSizeAsc, sortSizeDesc:
			if a.DownloadSize == b.DownloadSize {
				return a.Name < b.Name
			}
			less = a.DownloadSize < b.DownloadSize
		case sortStatusAsc, sortStatusDesc:
			if statusRank(a) == statusRank(b) {
				return a.Name < b.Name
			}
			less = statusRank(a) < statusRank(b)
		default:
			less = a.Name < b.Name
		}
		switch order {
		case sortNameDesc, sortSizeDesc, sortStatusDesc:
			return !less
		}
		return less
	})
}

// Console is the interactive package browser. All engine access happens
// on the tview event loop goroutine.
type Console struct {
	cfg    *Config
	engine *Engine
	u      *Universe

	app     *tview.Application
	pages   *tview.Pages
	table   *tview.Table
	details *tview.TextView
	status  *tview.TextView
	search  *tview.InputField

	filter  consoleFilter
	order   sortOrder
	query   string
	visible []PackageRecord
}

// RunConsole opens the interactive console over an existing session.
func RunConsole(cfg *Config, engine *Engine, u *Universe) error {
	c := &Console{
		cfg:    cfg,
		engine: engine,
		u:      u,
		app:    tview.NewApplication(),
		filter: filterAll,
	}

	c.table = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	c.table.SetBorder(true)
	c.table.SetTitle(" Packages ")
	c.table.SetSelectionChangedFunc(func(row, col int) {
		c.updateDetails(row)
	})

	c.details = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	c.details.SetBorder(true)
	c.details.SetTitle(" Details ")

	c.status = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)

	c.search = tview.NewInputField().
		SetLabel(" / ").
		SetFieldBackgroundColor(tcell.ColorDefault)
	c.search.SetChangedFunc(func(text string) {
		c.query = text
		c.refresh()
	})
	c.search.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			c.query = ""
			c.search.SetText("")
			c.refresh()
		}
		c.app.SetFocus(c.table)
	})

	main := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(c.table, 0, 2, true).
			AddItem(c.details, 0, 1, false), 0, 1, true).
		AddItem(c.search, 1, 0, false).
		AddItem(c.status, 1, 0, false)

	c.pages = tview.NewPages().
		AddPage("main", main, true, true)

	c.table.SetInputCapture(c.handleKey)

	c.refresh()
	c.app.SetRoot(c.pages, true).SetFocus(c.table)
	return c.app.Run()
}

func (c *Console) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		c.quit()
		return nil
	case tcell.KeyTab:
		c.filter = (c.filter + 1) % 5
		c.refresh()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q':
			c.quit()
			return nil
		case ' ':
			if id, ok := c.selectedID(); ok {
				c.handleOutcome(c.engine.Toggle(id))
			}
			return nil
		case '-':
			if id, ok := c.selectedID(); ok {
				c.handleOutcome(c.engine.ToggleRemove(id))
			}
			return nil
		case '/':
			c.app.SetFocus(c.search)
			return nil
		case 's':
			c.order = (c.order + 1) % 6
			c.refresh()
			return nil
		case 'u':
			c.showChanges()
			return nil
		case 'x':
			marked, skipped := c.engine.MarkAllUpgrades()
			msg := fmt.Sprintf("marked %d upgrades", marked)
			if len(skipped) > 0 {
				msg += fmt.Sprintf(", skipped %d unsatisfiable", len(skipped))
			}
			c.flash(msg)
			return nil
		case 'N':
			c.engine.UnmarkAll()
			c.flash("all marks cleared")
			return nil
		}
	}
	return event
}

// quit asks before throwing away uncommitted marks.
func (c *Console) quit() {
	if c.engine.State() == SessionClean {
		c.app.Stop()
		return
	}
	modal := tview.NewModal().
		SetText(fmt.Sprintf("%d pending change(s) will be discarded. Quit anyway?", c.engine.Changes().Total())).
		AddButtons([]string{"Quit", "Stay"}).
		SetDoneFunc(func(idx int, label string) {
			c.pages.RemovePage("quit")
			c.app.SetFocus(c.table)
			if label == "Quit" {
				c.app.Stop()
			}
		})
	c.pages.AddPage("quit", modal, true, true)
}

func (c *Console) selectedID() (PackageID, bool) {
	row, _ := c.table.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(c.visible) {
		return "", false
	}
	return c.visible[idx].ID, true
}

func (c *Console) handleOutcome(out ToggleOutcome) {
	switch out.Kind {
	case OutcomeApplied:
		c.refresh()
	case OutcomeNoOp:
		c.flash(out.Reason)
	case OutcomeUnsatisfiable:
		c.flashError("unsatisfiable: " + out.Reason)
	case OutcomeNeedsConfirmation:
		c.showConfirm(out.Proposal)
	}
}

// showConfirm puts the pending proposal on screen. Only y/n (or the
// buttons) leave this modal; the table underneath cannot receive toggles
// while it is up.
func (c *Console) showConfirm(p *ProposedChangeSet) {
	lines := describeProposal(p, c.engine.Store())
	trigger := c.engine.Store().Get(p.Trigger)

	var title string
	if p.Clear {
		title = fmt.Sprintf("Unmarking %s also affects %d other package(s):", trigger.Name, len(p.Actions)-1)
	} else {
		title = fmt.Sprintf("%s needs %d additional change(s):", trigger.Name, len(p.Actions)-1)
	}

	modal := tview.NewModal().
		SetText(title + "\n\n" + strings.Join(lines, "\n")).
		AddButtons([]string{"Yes", "No"}).
		SetDoneFunc(func(idx int, label string) {
			c.resolvePending(label == "Yes")
		})
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'y':
			c.resolvePending(true)
			return nil
		case 'n':
			c.resolvePending(false)
			return nil
		}
		return event
	})
	c.pages.AddPage("confirm", modal, true, true)
}

func (c *Console) resolvePending(accepted bool) {
	c.pages.RemovePage("confirm")
	c.app.SetFocus(c.table)
	if err := c.engine.Resolve(accepted); err != nil {
		c.flashError(err.Error())
		return
	}
	c.refresh()
}

// showChanges displays the grouped commit preview with the option to
// apply it.
func (c *Console) showChanges() {
	g := c.engine.Changes()
	if g.Empty() {
		c.flash("nothing marked")
		return
	}

	var b strings.Builder
	section := func(label string, recs []PackageRecord) {
		if len(recs) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s (%d):\n", label, len(recs))
		for _, r := range recs {
			fmt.Fprintf(&b, "  %s %s\n", r.Name, r.CandidateVersion)
		}
		b.WriteString("\n")
	}
	section("Install", g.Install)
	section("Upgrade", g.Upgrade)
	section("Remove", g.Remove)
	section("Install (dependencies)", g.AutoInstall)
	section("Upgrade (dependencies)", g.AutoUpgrade)
	section("Remove (dependencies)", g.AutoRemove)
	fmt.Fprintf(&b, "Download size: %s", humanSize(g.DownloadSize))

	modal := tview.NewModal().
		SetText(b.String()).
		AddButtons([]string{"Commit", "Reset", "Close"}).
		SetDoneFunc(func(idx int, label string) {
			c.pages.RemovePage("changes")
			c.app.SetFocus(c.table)
			switch label {
			case "Commit":
				c.commit()
			case "Reset":
				c.engine.Reset()
				c.refresh()
			}
		})
	c.pages.AddPage("changes", modal, true, true)
}

// commit leaves the TUI for the duration of the commit so download and
// install output renders normally, then reloads the whole session.
func (c *Console) commit() {
	var commitErr error
	c.app.Suspend(func() {
		_, commitErr = Commit(c.cfg, c.engine, c.u, false)
	})
	if commitErr != nil {
		c.flashError(commitErr.Error())
		return
	}
	u, err := LoadUniverse()
	if err != nil {
		c.flashError(err.Error())
		return
	}
	c.u = u
	c.engine = NewEngine(NewIntentStore(u.Records()), NewOracle(u))
	c.refresh()
}

func (c *Console) matchesFilter(r PackageRecord) bool {
	switch c.filter {
	case filterUpgradable:
		return r.Base == StateUpgradable
	case filterMarked:
		return r.Marked()
	case filterInstalled:
		return r.Base != StateNotInstalled
	case filterAvailable:
		return r.Base == StateNotInstalled
	}
	return true
}

func (c *Console) refresh() {
	var pool []PackageRecord
	for _, r := range c.engine.Store().Records() {
		if c.matchesFilter(r) {
			pool = append(pool, r)
		}
	}
	c.visible = FilterRecords(pool, c.query)
	sortRecords(c.visible, c.order)

	c.table.Clear()
	headers := []string{"S", "Package", "Installed", "Candidate", "Size"}
	for col, h := range headers {
		c.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}
	for i, r := range c.visible {
		row := i + 1
		c.table.SetCell(row, 0, tview.NewTableCell(r.StatusSymbol()).SetTextColor(r.StatusColor()))
		c.table.SetCell(row, 1, tview.NewTableCell(r.Name).SetTextColor(r.StatusColor()).SetExpansion(1))
		c.table.SetCell(row, 2, tview.NewTableCell(r.InstalledVersion))
		c.table.SetCell(row, 3, tview.NewTableCell(r.CandidateVersion))
		c.table.SetCell(row, 4, tview.NewTableCell(humanSize(r.DownloadSize)).SetAlign(tview.AlignRight))
	}

	row, _ := c.table.GetSelection()
	if row < 1 {
		row = 1
	}
	if row > len(c.visible) {
		row = len(c.visible)
	}
	if len(c.visible) > 0 {
		c.table.Select(row, 0)
	}
	c.updateDetails(row)
	c.updateStatus("")
}

func (c *Console) updateDetails(row int) {
	idx := row - 1
	if idx < 0 || idx >= len(c.visible) {
		c.details.SetText("")
		return
	}
	r := c.engine.Store().Get(c.visible[idx].ID)

	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%s[-]\n\n", r.Name)
	if r.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", r.Description)
	}
	if r.InstalledVersion != "" {
		fmt.Fprintf(&b, "Installed: %s\n", r.InstalledVersion)
	}
	if r.CandidateVersion != "" {
		fmt.Fprintf(&b, "Candidate: %s-%s\n", r.CandidateVersion, r.Revision)
	}
	if r.DownloadSize > 0 {
		fmt.Fprintf(&b, "Download:  %s\n", humanSize(r.DownloadSize))
	}

	deps, ok := c.u.CandidateDeps(r.ID)
	if !ok {
		deps = c.u.InstalledDeps(r.ID)
	}
	if len(deps) > 0 {
		b.WriteString("\n[yellow]Depends[-]\n")
		for _, d := range deps {
			fmt.Fprintf(&b, "  %s\n", d.String())
		}
	}
	if rev := NewOracle(c.u).InstalledRequiring(r.ID, nil); len(rev) > 0 {
		b.WriteString("\n[yellow]Required by[-]\n")
		for _, q := range rev {
			fmt.Fprintf(&b, "  %s\n", q)
		}
	}
	c.details.SetText(b.String())
}

func (c *Console) updateStatus(msg string) {
	state := "clean"
	switch c.engine.State() {
	case SessionDirty:
		state = "dirty"
	case SessionAwaitingConfirmation:
		state = "awaiting confirmation"
	}
	g := c.engine.Changes()
	text := fmt.Sprintf(" [yellow]%s[-] | filter: %s | sort: %s | %d shown | %d marked",
		state, c.filter, c.order, len(c.visible), g.Total())
	if msg != "" {
		text += " | " + msg
	}
	text += "  [gray]space:toggle -:remove /:search s:sort u:changes x:upgrade-all N:clear q:quit[-]"
	c.status.SetText(text)
}

func (c *Console) flash(msg string) {
	c.refresh()
	c.updateStatus("[blue]" + msg + "[-]")
}

func (c *Console) flashError(msg string) {
	c.refresh()
	c.updateStatus("[red]" + msg + "[-]")
}
