package subaru

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRoot points the global paths at a scratch root and seeds the
// installed DB and index cache.
func setupRoot(t *testing.T, index []RepoEntry, installed []InstalledPackage) *Config {
	t.Helper()
	root := t.TempDir()
	cfg := &Config{Values: map[string]string{"SUBARU_ROOT": root}}
	initConfig(cfg)

	for _, p := range installed {
		dir := filepath.Join(Installed, p.Name)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "version"),
			[]byte(p.Version+" "+p.Revision+"\n"), 0644))
		if len(p.Depends) > 0 {
			var lines string
			for _, d := range p.Depends {
				lines += d.String() + "\n"
			}
			require.NoError(t, os.WriteFile(filepath.Join(dir, "depends"), []byte(lines), 0644))
		}
	}

	if index != nil {
		data, err := EncodeRepoIndex(index)
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(filepath.Dir(IndexCache), 0755))
		require.NoError(t, os.WriteFile(IndexCache, data, 0644))
	}
	return cfg
}

func TestLoadUniverseFromDisk(t *testing.T) {
	index := []RepoEntry{
		{Name: "curl", Version: "8.6.0", Revision: "1", Depends: []string{"openssl>=3.0"}, Size: 1024, Description: "URL transfer tool"},
		{Name: "openssl", Version: "3.2.0", Revision: "1"},
		{Name: "htop", Version: "3.3.0", Revision: "1"},
	}
	installed := []InstalledPackage{
		{Name: "curl", Version: "8.5.0", Revision: "1", Depends: []DepSpec{{Name: "openssl", Op: ">=", Version: "3.0"}}},
		{Name: "openssl", Version: "3.2.0", Revision: "1"},
		{Name: "legacy-tool", Version: "0.9", Revision: "1"},
	}
	setupRoot(t, index, installed)

	u, err := LoadUniverse()
	require.NoError(t, err)

	v, ok := u.InstalledVersion("curl")
	require.True(t, ok)
	assert.Equal(t, "8.5.0", v)

	deps := u.InstalledDeps("curl")
	require.Len(t, deps, 1)
	assert.Equal(t, "openssl", deps[0].Name)

	cd, ok := u.CandidateDeps("curl")
	require.True(t, ok)
	assert.Equal(t, []DepSpec{{Name: "openssl", Op: ">=", Version: "3.0"}}, cd)

	byID := make(map[PackageID]PackageRecord)
	for _, r := range u.Records() {
		byID[r.ID] = r
	}

	assert.Equal(t, StateUpgradable, byID["curl"].Base)
	assert.Equal(t, "8.6.0", byID["curl"].CandidateVersion)
	assert.Equal(t, "URL transfer tool", byID["curl"].Description)
	assert.Equal(t, StateInstalled, byID["openssl"].Base)
	assert.Equal(t, StateNotInstalled, byID["htop"].Base)
	// Installed but gone from the index: still listed, no candidate.
	assert.Equal(t, StateInstalled, byID["legacy-tool"].Base)
	assert.Empty(t, byID["legacy-tool"].CandidateVersion)
}

func TestLoadUniverseWithoutIndexCache(t *testing.T) {
	setupRoot(t, nil, []InstalledPackage{
		{Name: "busybox", Version: "1.36", Revision: "1"},
	})

	u, err := LoadUniverse()
	require.NoError(t, err)

	recs := u.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "busybox", recs[0].Name)
	assert.Equal(t, StateInstalled, recs[0].Base)
}

func TestRevisionBumpIsUpgradable(t *testing.T) {
	index := []RepoEntry{{Name: "tz", Version: "2024a", Revision: "2"}}
	installed := []InstalledPackage{{Name: "tz", Version: "2024a", Revision: "1"}}
	setupRoot(t, index, installed)

	u, err := LoadUniverse()
	require.NoError(t, err)
	assert.Equal(t, StateUpgradable, u.Records()[0].Base)
}

func TestNewUniverseKeepsNewestIndexEntry(t *testing.T) {
	u := NewUniverse([]RepoEntry{
		{Name: "dup", Version: "1.0", Revision: "1"},
		{Name: "dup", Version: "2.0", Revision: "1"},
		{Name: "dup", Version: "1.5", Revision: "1"},
	}, nil)

	v, ok := u.CandidateVersion("dup")
	require.True(t, ok)
	assert.Equal(t, "2.0", v)
}
