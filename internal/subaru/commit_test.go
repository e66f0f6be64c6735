package subaru

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTarball creates a .tar.zst package payload in BinDir and returns
// its index entry.
func writeTarball(t *testing.T, name, version string, files map[string]string) RepoEntry {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	tw := tar.NewWriter(zw)

	dirs := make(map[string]bool)
	for path := range files {
		d := filepath.Dir(path)
		for d != "." && d != "/" && !dirs[d] {
			dirs[d] = true
			d = filepath.Dir(d)
		}
	}
	for d := range dirs {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: d + "/", Typeflag: tar.TypeDir, Mode: 0755,
		}))
	}
	for path, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: path, Typeflag: tar.TypeReg, Mode: 0644, Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())

	filename := name + "-" + version + "-1.tar.zst"
	dest := filepath.Join(BinDir, filename)
	require.NoError(t, os.MkdirAll(BinDir, 0755))
	require.NoError(t, os.WriteFile(dest, buf.Bytes(), 0644))

	sum, err := ComputeChecksum(dest)
	require.NoError(t, err)
	return RepoEntry{
		Name:     name,
		Version:  version,
		Revision: "1",
		Filename: filename,
		Size:     int64(buf.Len()),
		B3Sum:    sum,
	}
}

func TestCommitInstallAndRemove(t *testing.T) {
	cfg := setupRoot(t, nil, nil)
	entry := writeTarball(t, "hello", "1.0", map[string]string{
		"usr/bin/hello":        "#!/bin/sh\necho hello\n",
		"usr/share/hello/data": "payload\n",
	})

	u := NewUniverse([]RepoEntry{entry}, scanInstalled())
	e := NewEngine(NewIntentStore(u.Records()), NewOracle(u))

	out := e.Toggle("hello")
	require.Equal(t, OutcomeApplied, out.Kind)

	res, err := Commit(cfg, e, u, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Installed)
	assert.Equal(t, SessionClean, e.State())

	assert.FileExists(t, filepath.Join(rootDir, "usr/bin/hello"))
	assert.FileExists(t, filepath.Join(Installed, "hello", "version"))
	assert.FileExists(t, filepath.Join(Installed, "hello", "manifest"))

	ver, rev, ok := readInstalledVersion("hello")
	require.True(t, ok)
	assert.Equal(t, "1.0", ver)
	assert.Equal(t, "1", rev)

	manifest := readManifest("hello")
	assert.Contains(t, manifest, "/usr/bin/hello")
	assert.Contains(t, manifest, "/usr/share/hello/data")

	// Fresh session over the updated DB; remove it again.
	u2, err := LoadUniverse()
	require.NoError(t, err)
	e2 := NewEngine(NewIntentStore(u2.Records()), NewOracle(u2))

	out = e2.ToggleRemove("hello")
	require.Equal(t, OutcomeApplied, out.Kind)

	res, err = Commit(cfg, e2, u2, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)

	assert.NoFileExists(t, filepath.Join(rootDir, "usr/bin/hello"))
	assert.NoDirExists(t, filepath.Join(Installed, "hello"))
}

func TestCommitUpgradeDropsStaleFiles(t *testing.T) {
	cfg := setupRoot(t, nil, nil)

	first := writeTarball(t, "tool", "1.0", map[string]string{
		"usr/bin/tool":     "v1\n",
		"usr/share/extras": "old\n",
	})
	u := NewUniverse([]RepoEntry{first}, scanInstalled())
	e := NewEngine(NewIntentStore(u.Records()), NewOracle(u))
	require.Equal(t, OutcomeApplied, e.Toggle("tool").Kind)
	_, err := Commit(cfg, e, u, true)
	require.NoError(t, err)

	second := writeTarball(t, "tool", "2.0", map[string]string{
		"usr/bin/tool": "v2\n",
	})
	u2 := NewUniverse([]RepoEntry{second}, scanInstalled())
	e2 := NewEngine(NewIntentStore(u2.Records()), NewOracle(u2))

	require.Equal(t, StateUpgradable, e2.Store().Get("tool").Base)
	require.Equal(t, OutcomeApplied, e2.Toggle("tool").Kind)

	res, err := Commit(cfg, e2, u2, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upgraded)

	data, err := os.ReadFile(filepath.Join(rootDir, "usr/bin/tool"))
	require.NoError(t, err)
	assert.Equal(t, "v2\n", string(data))
	assert.NoFileExists(t, filepath.Join(rootDir, "usr/share/extras"))
}

func TestCommitNothingMarked(t *testing.T) {
	cfg := setupRoot(t, nil, nil)
	u := NewUniverse(nil, nil)
	e := NewEngine(NewIntentStore(u.Records()), NewOracle(u))

	_, err := Commit(cfg, e, u, true)
	assert.Error(t, err)
}

func TestIndexRoundTripThroughCache(t *testing.T) {
	setupRoot(t, nil, nil)

	index := []RepoEntry{{Name: "a", Version: "1.0", Revision: "1", Depends: []string{"b>=2"}}}
	data, err := EncodeRepoIndex(index)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(IndexCache), 0755))
	require.NoError(t, os.WriteFile(IndexCache, data, 0644))

	got, err := loadCachedIndex()
	require.NoError(t, err)
	assert.Equal(t, index, got)
}
