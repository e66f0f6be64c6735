package subaru

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore() *IntentStore {
	return NewIntentStore([]PackageRecord{
		{ID: "zsh", Name: "zsh", Base: StateInstalled, InstalledVersion: "5.9"},
		{ID: "vim", Name: "vim", Base: StateUpgradable, InstalledVersion: "9.0", CandidateVersion: "9.1"},
		{ID: "jq", Name: "jq", Base: StateNotInstalled, CandidateVersion: "1.7"},
	})
}

func TestStorePanicsOnUnknownID(t *testing.T) {
	s := testStore()
	assert.Panics(t, func() { s.Get("nope") })
	assert.Panics(t, func() { s.ClearMark("nope") })
	assert.False(t, s.Has("nope"))
	assert.True(t, s.Has("vim"))
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := testStore()
	r := s.Get("vim")
	r.Mark = MarkUpgrade
	assert.Equal(t, MarkNone, s.Get("vim").Mark)
}

func TestStoreSetMarkCompatibility(t *testing.T) {
	s := testStore()

	assert.NoError(t, s.SetMark("jq", MarkInstall, TagUserInitiated))
	assert.NoError(t, s.SetMark("vim", MarkUpgrade, TagUserInitiated))
	assert.NoError(t, s.SetMark("zsh", MarkRemove, TagUserInitiated))

	assert.Error(t, s.SetMark("zsh", MarkInstall, TagUserInitiated))
	assert.Error(t, s.SetMark("jq", MarkUpgrade, TagUserInitiated))
	assert.Error(t, s.SetMark("jq", MarkRemove, TagUserInitiated))
}

func TestStoreRecordsSortedByName(t *testing.T) {
	s := testStore()
	recs := s.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "jq", recs[0].Name)
	assert.Equal(t, "vim", recs[1].Name)
	assert.Equal(t, "zsh", recs[2].Name)
}

func TestStoreMarksSnapshot(t *testing.T) {
	s := testStore()
	require.NoError(t, s.SetMark("jq", MarkInstall, TagUserInitiated))
	require.NoError(t, s.SetMark("zsh", MarkRemove, TagDepInduced))

	snap := s.Marks()
	assert.Equal(t, MarkSnapshot{"jq": MarkInstall, "zsh": MarkRemove}, snap)

	// The snapshot is detached from later mutations.
	s.ClearMark("jq")
	assert.Equal(t, MarkInstall, snap["jq"])
	assert.True(t, s.Dirty())
}
