package subaru

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Universe is everything known about packages at one point in time: the
// repository index plus the installed database. The console builds its
// record set and oracle from it and rebuilds the whole thing after a
// commit or sync.
type Universe struct {
	entries       map[PackageID]RepoEntry
	installedVer  map[PackageID]string
	installedRev  map[PackageID]string
	installedDeps map[PackageID][]DepSpec
}

// LoadUniverse reads the cached index and scans the installed DB. Both
// paths come from the initialized globals, so initConfig must have run.
func LoadUniverse() (*Universe, error) {
	index, err := loadCachedIndex()
	if err != nil {
		return nil, err
	}
	return NewUniverse(index, scanInstalled()), nil
}

// InstalledPackage is one entry from the installed DB scan.
type InstalledPackage struct {
	Name     string
	Version  string
	Revision string
	Depends  []DepSpec
}

// NewUniverse assembles a universe from an index and installed set.
func NewUniverse(index []RepoEntry, installed []InstalledPackage) *Universe {
	u := &Universe{
		entries:       make(map[PackageID]RepoEntry, len(index)),
		installedVer:  make(map[PackageID]string, len(installed)),
		installedRev:  make(map[PackageID]string, len(installed)),
		installedDeps: make(map[PackageID][]DepSpec, len(installed)),
	}
	for _, e := range index {
		id := PackageID(e.Name)
		if prev, ok := u.entries[id]; ok && !isNewer(e.Version, e.Revision, prev.Version, prev.Revision) {
			continue
		}
		u.entries[id] = e
	}
	for _, p := range installed {
		id := PackageID(p.Name)
		u.installedVer[id] = p.Version
		u.installedRev[id] = p.Revision
		u.installedDeps[id] = p.Depends
	}
	return u
}

// scanInstalled walks the installed DB directory. Entries it cannot read
// are skipped; a half-written entry should not take the console down.
func scanInstalled() []InstalledPackage {
	dirs, err := os.ReadDir(Installed)
	if err != nil {
		return nil
	}
	var out []InstalledPackage
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		name := d.Name()
		ver, rev, ok := readInstalledVersion(name)
		if !ok {
			continue
		}
		out = append(out, InstalledPackage{
			Name:     name,
			Version:  ver,
			Revision: rev,
			Depends:  readInstalledDeps(name),
		})
	}
	return out
}

// readInstalledVersion reads the version file of an installed package.
// Format is "version revision" on one line; revision defaults to "1".
func readInstalledVersion(pkgName string) (string, string, bool) {
	data, err := os.ReadFile(filepath.Join(Installed, pkgName, "version"))
	if err != nil {
		return "", "", false
	}
	fields := strings.Fields(strings.TrimSpace(string(data)))
	if len(fields) == 0 {
		return "", "", false
	}
	rev := "1"
	if len(fields) > 1 {
		rev = fields[1]
	}
	return fields[0], rev, true
}

// readInstalledDeps reads and parses the depends file of an installed
// package. A missing file means no dependencies.
func readInstalledDeps(pkgName string) []DepSpec {
	data, err := os.ReadFile(filepath.Join(Installed, pkgName, "depends"))
	if err != nil {
		return nil
	}
	var deps []DepSpec
	for _, d := range parseDependsData(data) {
		if d.Name == pkgName {
			continue
		}
		deps = append(deps, d)
	}
	return deps
}

func (u *Universe) Entry(id PackageID) (RepoEntry, bool) {
	e, ok := u.entries[id]
	return e, ok
}

func (u *Universe) CandidateVersion(id PackageID) (string, bool) {
	e, ok := u.entries[id]
	if !ok {
		return "", false
	}
	return e.Version, true
}

func (u *Universe) CandidateDeps(id PackageID) ([]DepSpec, bool) {
	e, ok := u.entries[id]
	if !ok {
		return nil, false
	}
	deps := make([]DepSpec, 0, len(e.Depends))
	for _, raw := range e.Depends {
		name, op, ver := parseDepToken(raw)
		if name == "" || name == e.Name {
			continue
		}
		deps = append(deps, DepSpec{Name: name, Op: op, Version: ver})
	}
	return deps, true
}

func (u *Universe) InstalledVersion(id PackageID) (string, bool) {
	v, ok := u.installedVer[id]
	return v, ok
}

func (u *Universe) InstalledDeps(id PackageID) []DepSpec {
	return u.installedDeps[id]
}

// InstalledIDs returns all installed package IDs in stable order.
func (u *Universe) InstalledIDs() []PackageID {
	out := make([]PackageID, 0, len(u.installedVer))
	for id := range u.installedVer {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Records derives the full display record set: every package from the
// index and every installed package, with base state worked out from the
// two versions.
func (u *Universe) Records() []PackageRecord {
	seen := make(map[PackageID]bool, len(u.entries)+len(u.installedVer))
	var out []PackageRecord

	for id, e := range u.entries {
		seen[id] = true
		r := PackageRecord{
			ID:               id,
			Name:             e.Name,
			Base:             StateNotInstalled,
			CandidateVersion: e.Version,
			Revision:         e.Revision,
			Description:      e.Description,
			DownloadSize:     e.Size,
		}
		if iv, ok := u.installedVer[id]; ok {
			r.InstalledVersion = iv
			r.Base = StateInstalled
			if isNewer(e.Version, e.Revision, iv, u.installedRev[id]) {
				r.Base = StateUpgradable
			}
		}
		out = append(out, r)
	}

	// Installed packages missing from the index are still shown; they
	// just have no candidate to upgrade to.
	for id, iv := range u.installedVer {
		if seen[id] {
			continue
		}
		out = append(out, PackageRecord{
			ID:               id,
			Name:             string(id),
			Base:             StateInstalled,
			InstalledVersion: iv,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
