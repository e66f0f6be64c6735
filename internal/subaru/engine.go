package subaru

import "fmt"

// OutcomeKind classifies what a toggle did.
type OutcomeKind uint8

const (
	// OutcomeApplied means the marks changed immediately.
	OutcomeApplied OutcomeKind = iota
	// OutcomeNeedsConfirmation means a proposal is now pending and no
	// marks changed yet.
	OutcomeNeedsConfirmation
	// OutcomeNoOp means nothing changed; Reason says why.
	OutcomeNoOp
	// OutcomeUnsatisfiable means the request has no satisfying change
	// set; Reason carries the detail. No marks changed.
	OutcomeUnsatisfiable
)

// ToggleOutcome is the result of a toggle request.
type ToggleOutcome struct {
	Kind     OutcomeKind
	Reason   string
	Proposal *ProposedChangeSet
}

// ProposedAction is one mark change inside a proposal.
type ProposedAction struct {
	ID   PackageID
	Mark Mark
	Tag  IntentTag
}

// ProposedChangeSet is a pending all-or-nothing change set awaiting a
// yes/no answer. Clear proposals revert marks instead of setting them.
type ProposedChangeSet struct {
	Trigger PackageID
	Clear   bool
	Actions []ProposedAction
}

// Engine owns the mark state machine. All mark mutations go through it so
// the satisfiability and all-or-nothing rules hold at every step. It is
// not safe for concurrent use; the console drives it from one goroutine.
type Engine struct {
	store   *IntentStore
	oracle  DependencyOracle
	pending *ProposedChangeSet
}

func NewEngine(store *IntentStore, oracle DependencyOracle) *Engine {
	return &Engine{store: store, oracle: oracle}
}

// Store exposes the underlying intent store for read-only display use.
func (e *Engine) Store() *IntentStore {
	return e.store
}

// Pending returns the proposal awaiting confirmation, or nil.
func (e *Engine) Pending() *ProposedChangeSet {
	return e.pending
}

// SessionState summarizes the engine for the status line.
type SessionState uint8

const (
	SessionClean SessionState = iota
	SessionDirty
	SessionAwaitingConfirmation
)

func (e *Engine) State() SessionState {
	if e.pending != nil {
		return SessionAwaitingConfirmation
	}
	if e.store.Dirty() {
		return SessionDirty
	}
	return SessionClean
}

func noOp(reason string) ToggleOutcome {
	return ToggleOutcome{Kind: OutcomeNoOp, Reason: reason}
}

// Toggle handles the primary action on a package: mark it for install or
// upgrade, or revert its existing mark. While a proposal is pending all
// further toggles are rejected so the pending set cannot drift.
func (e *Engine) Toggle(id PackageID) ToggleOutcome {
	if e.pending != nil {
		return noOp("confirmation already pending")
	}
	r := e.store.Get(id)
	if r.Marked() {
		return e.unmark(r)
	}
	if r.Base == StateInstalled {
		// Up to date; nothing to resolve, so the oracle is not asked.
		return noOp(r.Name + " is already installed and up to date")
	}
	mark := markFor(r.Base)
	adds, err := e.oracle.RequiredAdditions(id, e.store.Marks())
	if err != nil {
		return ToggleOutcome{Kind: OutcomeUnsatisfiable, Reason: err.Error()}
	}
	if len(adds) == 0 {
		if err := e.store.SetMark(id, mark, TagUserInitiated); err != nil {
			return ToggleOutcome{Kind: OutcomeUnsatisfiable, Reason: err.Error()}
		}
		return ToggleOutcome{Kind: OutcomeApplied}
	}
	p := &ProposedChangeSet{
		Trigger: id,
		Actions: []ProposedAction{{ID: id, Mark: mark, Tag: TagUserInitiated}},
	}
	for _, dep := range adds {
		d := e.store.Get(dep)
		dm := markFor(d.Base)
		if dm == MarkNone && d.Mark != MarkRemove {
			// The oracle only reports a dep with no applicable mark when
			// its removal is what breaks satisfiability.
			return ToggleOutcome{Kind: OutcomeUnsatisfiable,
				Reason: fmt.Sprintf("dependency %s cannot change state", d.Name)}
		}
		// dm == MarkNone here means the dep is installed but marked for
		// removal; the proposal cancels that removal instead.
		p.Actions = append(p.Actions, ProposedAction{ID: dep, Mark: dm, Tag: TagDepInduced})
	}
	e.pending = p
	return ToggleOutcome{Kind: OutcomeNeedsConfirmation, Proposal: p}
}

// ToggleRemove marks an installed package for removal, or reverts an
// existing mark. Removing a package that others require cascades the
// removal to them, behind the same confirmation gate.
func (e *Engine) ToggleRemove(id PackageID) ToggleOutcome {
	if e.pending != nil {
		return noOp("confirmation already pending")
	}
	r := e.store.Get(id)
	if r.Marked() {
		return e.unmark(r)
	}
	if r.Base == StateNotInstalled {
		return noOp(r.Name + " is not installed")
	}
	req := e.oracle.InstalledRequiring(id, e.store.Marks())
	if len(req) == 0 {
		if err := e.store.SetMark(id, MarkRemove, TagUserInitiated); err != nil {
			return ToggleOutcome{Kind: OutcomeUnsatisfiable, Reason: err.Error()}
		}
		return ToggleOutcome{Kind: OutcomeApplied}
	}
	p := &ProposedChangeSet{
		Trigger: id,
		Actions: []ProposedAction{{ID: id, Mark: MarkRemove, Tag: TagUserInitiated}},
	}
	for _, dep := range req {
		p.Actions = append(p.Actions, ProposedAction{ID: dep, Mark: MarkRemove, Tag: TagDepInduced})
	}
	e.pending = p
	return ToggleOutcome{Kind: OutcomeNeedsConfirmation, Proposal: p}
}

// unmark reverts r's mark. When other marked packages stop being
// satisfiable without it, the whole cascade becomes a clear proposal.
func (e *Engine) unmark(r PackageRecord) ToggleOutcome {
	var deps []PackageID
	if r.Mark == MarkRemove {
		deps = e.removalsDependingOn(r.ID)
	} else {
		deps = e.oracle.DependentsBreakingIfUnmarked(r.ID, e.store.Marks())
	}
	if len(deps) == 0 {
		e.store.ClearMark(r.ID)
		e.dropOrphanedInduced()
		return ToggleOutcome{Kind: OutcomeApplied}
	}
	p := &ProposedChangeSet{
		Trigger: r.ID,
		Clear:   true,
		Actions: []ProposedAction{{ID: r.ID}},
	}
	for _, dep := range deps {
		p.Actions = append(p.Actions, ProposedAction{ID: dep})
	}
	e.pending = p
	return ToggleOutcome{Kind: OutcomeNeedsConfirmation, Proposal: p}
}

// removalsDependingOn finds remove-marked packages whose removal only
// goes through because id is also being removed. Keeping id installed
// would leave them with a dependency still on disk.
func (e *Engine) removalsDependingOn(id PackageID) []PackageID {
	var out []PackageID
	for _, rec := range e.store.AllMarked() {
		if rec.Mark != MarkRemove || rec.ID == id {
			continue
		}
		for _, q := range e.oracle.InstalledRequiring(rec.ID, nil) {
			if q == id {
				out = append(out, rec.ID)
				break
			}
		}
	}
	return out
}

// Resolve answers the pending proposal. Reject leaves every mark exactly
// as it was. Accept applies all actions or none: a failure partway
// rolls back the actions already applied.
func (e *Engine) Resolve(accepted bool) error {
	p := e.pending
	if p == nil {
		return fmt.Errorf("no confirmation pending")
	}
	e.pending = nil
	if !accepted {
		return nil
	}

	type undo struct {
		id   PackageID
		mark Mark
		tag  IntentTag
	}
	var undos []undo
	rollback := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			u := undos[i]
			if u.mark == MarkNone {
				e.store.ClearMark(u.id)
			} else {
				_ = e.store.SetMark(u.id, u.mark, u.tag)
			}
		}
	}

	for _, a := range p.Actions {
		prev := e.store.Get(a.ID)
		if p.Clear || a.Mark == MarkNone {
			e.store.ClearMark(a.ID)
		} else if err := e.store.SetMark(a.ID, a.Mark, a.Tag); err != nil {
			rollback()
			return fmt.Errorf("applying change set: %w", err)
		}
		undos = append(undos, undo{id: prev.ID, mark: prev.Mark, tag: prev.Tag})
	}
	e.dropOrphanedInduced()
	return nil
}

// dropOrphanedInduced clears dependency-induced marks that no remaining
// mark needs anymore. Runs to a fixpoint because clearing one induced
// mark can orphan another.
func (e *Engine) dropOrphanedInduced() {
	for {
		changed := false
		for _, rec := range e.store.AllMarked() {
			if rec.Tag != TagDepInduced {
				continue
			}
			var needed bool
			if rec.Mark == MarkRemove {
				needed = len(e.removalsDependingOn(rec.ID)) > 0
			} else {
				needed = len(e.oracle.DependentsBreakingIfUnmarked(rec.ID, e.store.Marks())) > 0
			}
			if !needed {
				e.store.ClearMark(rec.ID)
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// MarkAllUpgrades marks every upgradable package, pulling in whatever
// each upgrade requires, without a per-package confirmation round.
// Upgrades with no satisfying change set are skipped and reported.
func (e *Engine) MarkAllUpgrades() (marked int, skipped []PackageID) {
	if e.pending != nil {
		return 0, nil
	}
	for _, rec := range e.store.Records() {
		if rec.Base != StateUpgradable || rec.Mark != MarkNone {
			continue
		}
		adds, err := e.oracle.RequiredAdditions(rec.ID, e.store.Marks())
		if err != nil {
			skipped = append(skipped, rec.ID)
			continue
		}
		if e.store.SetMark(rec.ID, MarkUpgrade, TagUserInitiated) != nil {
			skipped = append(skipped, rec.ID)
			continue
		}
		marked++
		for _, dep := range adds {
			d := e.store.Get(dep)
			dm := markFor(d.Base)
			if dm == MarkNone {
				if d.Mark == MarkRemove {
					// Keep the dep installed; its removal would break
					// the upgrade just marked.
					e.store.ClearMark(dep)
				}
				continue
			}
			_ = e.store.SetMark(dep, dm, TagDepInduced)
		}
	}
	return marked, skipped
}

// UnmarkAll clears every mark and any pending proposal.
func (e *Engine) UnmarkAll() {
	e.pending = nil
	for _, rec := range e.store.AllMarked() {
		e.store.ClearMark(rec.ID)
	}
}
