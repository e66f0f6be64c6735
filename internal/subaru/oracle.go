package subaru

import (
	"fmt"
	"sort"
)

// MarkSnapshot is the set of pending marks at the moment an oracle
// question is asked. The oracle never caches anything derived from it.
type MarkSnapshot map[PackageID]Mark

// DependencyOracle answers dependency questions against the live package
// universe. Every answer is computed fresh from the snapshot passed in,
// so index or DB reloads are picked up on the next question.
type DependencyOracle interface {
	// RequiredAdditions returns the extra packages that must also be
	// installed or upgraded for target to be satisfiable, in dependency
	// order, excluding target itself. An empty result means target is
	// satisfiable on its own. An error means no satisfying set exists.
	RequiredAdditions(target PackageID, marks MarkSnapshot) ([]PackageID, error)

	// DependentsBreakingIfUnmarked returns the marked packages whose
	// requirements stop holding if target's mark (and theirs, in
	// cascade) were cleared. The closure is transitive through chains
	// of marked packages.
	DependentsBreakingIfUnmarked(target PackageID, marks MarkSnapshot) []PackageID

	// InstalledRequiring returns the installed packages that require
	// target, directly or transitively, and would therefore have to be
	// removed along with it. Packages already marked for removal are
	// passed through the closure but not reported again.
	InstalledRequiring(target PackageID, marks MarkSnapshot) []PackageID
}

type universeOracle struct {
	u *Universe
}

// NewOracle returns a DependencyOracle backed by the given universe.
func NewOracle(u *Universe) DependencyOracle {
	return &universeOracle{u: u}
}

// depSatisfied reports whether a dependency constraint already holds
// under the snapshot, without any new addition.
func (o *universeOracle) depSatisfied(depID PackageID, dep DepSpec, marks MarkSnapshot) bool {
	mark := marks[depID]
	if inst, ok := o.u.InstalledVersion(depID); ok && mark != MarkRemove {
		ver := inst
		if mark == MarkUpgrade {
			if cv, ok := o.u.CandidateVersion(depID); ok {
				ver = cv
			}
		}
		return versionSatisfies(ver, dep.Op, dep.Version)
	}
	if mark == MarkInstall || mark == MarkUpgrade {
		if cv, ok := o.u.CandidateVersion(depID); ok {
			return versionSatisfies(cv, dep.Op, dep.Version)
		}
	}
	return false
}

func (o *universeOracle) walk(id PackageID, marks MarkSnapshot, visited map[PackageID]bool, plan *[]PackageID) error {
	deps, ok := o.u.CandidateDeps(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, errPackageNotFound)
	}
	for _, dep := range deps {
		depID := PackageID(dep.Name)
		if depID == id || visited[depID] {
			continue
		}
		if o.depSatisfied(depID, dep, marks) {
			continue
		}
		candVer, ok := o.u.CandidateVersion(depID)
		if !ok {
			return fmt.Errorf("dependency %s of %s: %w", dep.Name, id, errPackageNotFound)
		}
		if !versionSatisfies(candVer, dep.Op, dep.Version) {
			return fmt.Errorf("dependency %s of %s: candidate %s does not satisfy %s%s",
				dep.Name, id, candVer, dep.Op, dep.Version)
		}
		visited[depID] = true
		if err := o.walk(depID, marks, visited, plan); err != nil {
			return err
		}
		*plan = append(*plan, depID)
	}
	return nil
}

func (o *universeOracle) RequiredAdditions(target PackageID, marks MarkSnapshot) ([]PackageID, error) {
	visited := map[PackageID]bool{target: true}
	var plan []PackageID
	if err := o.walk(target, marks, visited, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (o *universeOracle) DependentsBreakingIfUnmarked(target PackageID, marks MarkSnapshot) []PackageID {
	broken := map[PackageID]bool{target: true}
	for {
		changed := false
		reduced := make(MarkSnapshot, len(marks))
		for id, m := range marks {
			if !broken[id] {
				reduced[id] = m
			}
		}
		for id, m := range marks {
			if broken[id] || (m != MarkInstall && m != MarkUpgrade) {
				continue
			}
			adds, err := o.RequiredAdditions(id, reduced)
			if err != nil {
				broken[id] = true
				changed = true
				continue
			}
			for _, a := range adds {
				if broken[a] {
					broken[id] = true
					changed = true
					break
				}
			}
		}
		if !changed {
			break
		}
	}
	delete(broken, target)
	return sortedIDs(broken)
}

func (o *universeOracle) InstalledRequiring(target PackageID, marks MarkSnapshot) []PackageID {
	doomed := map[PackageID]bool{target: true}
	for id, m := range marks {
		if m == MarkRemove {
			doomed[id] = true
		}
	}
	for {
		changed := false
		for _, id := range o.u.InstalledIDs() {
			if doomed[id] {
				continue
			}
			for _, dep := range o.u.InstalledDeps(id) {
				if doomed[PackageID(dep.Name)] {
					doomed[id] = true
					changed = true
					break
				}
			}
		}
		if !changed {
			break
		}
	}
	delete(doomed, target)
	for id, m := range marks {
		if m == MarkRemove {
			delete(doomed, id)
		}
	}
	return sortedIDs(doomed)
}

func sortedIDs(set map[PackageID]bool) []PackageID {
	out := make([]PackageID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
