package subaru

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CommitResult summarizes what a commit did.
type CommitResult struct {
	Installed int
	Upgraded  int
	Removed   int
}

// Commit applies every pending mark to the system: downloads and verifies
// all tarballs first, then removes, then installs and upgrades. Runs
// under the system lock. On failure the marks are left untouched so the
// session can be retried; on success the engine is reset and the caller
// should reload the universe.
func Commit(cfg *Config, engine *Engine, u *Universe, quiet bool) (CommitResult, error) {
	var res CommitResult
	g := engine.Changes()
	if g.Empty() {
		return res, fmt.Errorf("nothing to commit")
	}

	unlock, err := acquireLock()
	if err != nil {
		return res, err
	}
	defer unlock()

	installs := append(append([]PackageRecord{}, g.Install...), g.AutoInstall...)
	upgrades := append(append([]PackageRecord{}, g.Upgrade...), g.AutoUpgrade...)
	removes := append(append([]PackageRecord{}, g.Remove...), g.AutoRemove...)

	// Fetch everything up front so a dead mirror cannot leave the system
	// half changed.
	type fetched struct {
		rec     PackageRecord
		entry   RepoEntry
		tarball string
	}
	var work []fetched
	for _, rec := range append(installs, upgrades...) {
		entry, ok := u.Entry(rec.ID)
		if !ok {
			return res, fmt.Errorf("%s: %w", rec.Name, errPackageNotFound)
		}
		if !quiet {
			colArrow.Print("-> ")
			colSuccess.Printf("Fetching %s %s\n", entry.Name, entry.Version)
		}
		path, err := fetchBinaryPackage(entry, cfg, quiet)
		if err != nil {
			return res, err
		}
		work = append(work, fetched{rec: rec, entry: entry, tarball: path})
	}

	for _, rec := range removes {
		if !quiet {
			colArrow.Print("-> ")
			colSuccess.Printf("Removing %s\n", rec.Name)
		}
		if err := removeInstalled(string(rec.ID)); err != nil {
			return res, fmt.Errorf("failed to remove %s: %w", rec.Name, err)
		}
		res.Removed++
	}

	for _, w := range work {
		if !quiet {
			colArrow.Print("-> ")
			if w.rec.Mark == MarkUpgrade {
				colSuccess.Printf("Upgrading %s %s -> %s\n", w.rec.Name, w.rec.InstalledVersion, w.entry.Version)
			} else {
				colSuccess.Printf("Installing %s %s\n", w.rec.Name, w.entry.Version)
			}
		}
		oldManifest := readManifest(string(w.rec.ID))
		manifest, err := extractPackage(w.tarball, rootDir)
		if err != nil {
			return res, fmt.Errorf("failed to extract %s: %w", w.rec.Name, err)
		}
		if err := writeDBEntry(w.entry, manifest); err != nil {
			return res, fmt.Errorf("failed to record %s: %w", w.rec.Name, err)
		}
		removeStalePaths(oldManifest, manifest)
		if w.rec.Mark == MarkUpgrade {
			res.Upgraded++
		} else {
			res.Installed++
		}
	}

	engine.Reset()
	if !quiet {
		colArrow.Print("-> ")
		colSuccess.Printf("Done: %d installed, %d upgraded, %d removed\n",
			res.Installed, res.Upgraded, res.Removed)
	}
	return res, nil
}

// writeDBEntry records an installed package: version, depends and the
// file manifest.
func writeDBEntry(entry RepoEntry, manifest []string) error {
	dir := filepath.Join(Installed, entry.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	version := fmt.Sprintf("%s %s\n", entry.Version, entry.Revision)
	if err := os.WriteFile(filepath.Join(dir, "version"), []byte(version), 0644); err != nil {
		return err
	}
	if len(entry.Depends) > 0 {
		data := strings.Join(entry.Depends, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, "depends"), []byte(data), 0644); err != nil {
			return err
		}
	} else {
		_ = os.Remove(filepath.Join(dir, "depends"))
	}
	data := strings.Join(manifest, "\n") + "\n"
	return os.WriteFile(filepath.Join(dir, "manifest"), []byte(data), 0644)
}

// readManifest returns the recorded manifest of an installed package, or
// nil when there is none.
func readManifest(pkgName string) []string {
	f, err := os.Open(filepath.Join(Installed, pkgName, "manifest"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}

// removeInstalled deletes a package's files per its manifest and drops
// its DB entry. Directories are only removed when empty.
func removeInstalled(pkgName string) error {
	manifest := readManifest(pkgName)
	for i := len(manifest) - 1; i >= 0; i-- {
		target := filepath.Join(rootDir, manifest[i])
		info, err := os.Lstat(target)
		if err != nil {
			continue
		}
		if info.IsDir() {
			// Shared directories stay if anything else still lives there.
			_ = os.Remove(target)
			continue
		}
		if err := os.Remove(target); err != nil {
			debugf("Warning: failed to remove %s: %v\n", target, err)
		}
	}
	return os.RemoveAll(filepath.Join(Installed, pkgName))
}

// removeStalePaths drops files from the old manifest that the new one no
// longer ships.
func removeStalePaths(oldManifest, newManifest []string) {
	keep := make(map[string]bool, len(newManifest))
	for _, p := range newManifest {
		keep[p] = true
	}
	for i := len(oldManifest) - 1; i >= 0; i-- {
		p := oldManifest[i]
		if keep[p] {
			continue
		}
		target := filepath.Join(rootDir, p)
		info, err := os.Lstat(target)
		if err != nil {
			continue
		}
		if info.IsDir() {
			_ = os.Remove(target)
			continue
		}
		if err := os.Remove(target); err != nil {
			debugf("Warning: failed to remove stale %s: %v\n", target, err)
		}
	}
}
