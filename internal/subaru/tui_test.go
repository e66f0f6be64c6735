package subaru

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sortFixture() []PackageRecord {
	return []PackageRecord{
		{ID: "cc", Name: "cc", Base: StateInstalled, DownloadSize: 50},
		{ID: "aa", Name: "aa", Base: StateNotInstalled, Mark: MarkInstall, DownloadSize: 200},
		{ID: "bb", Name: "bb", Base: StateUpgradable, DownloadSize: 100},
		{ID: "dd", Name: "dd", Base: StateNotInstalled, DownloadSize: 100},
	}
}

func sortedNames(order sortOrder) []string {
	recs := sortFixture()
	sortRecords(recs, order)
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestSortRecords(t *testing.T) {
	assert.Equal(t, []string{"aa", "bb", "cc", "dd"}, sortedNames(sortNameAsc))
	assert.Equal(t, []string{"dd", "cc", "bb", "aa"}, sortedNames(sortNameDesc))

	// Equal sizes tie-break on ascending name in both directions.
	assert.Equal(t, []string{"cc", "bb", "dd", "aa"}, sortedNames(sortSizeAsc))
	assert.Equal(t, []string{"aa", "bb", "dd", "cc"}, sortedNames(sortSizeDesc))

	// Marked first, then upgradable, installed, available.
	assert.Equal(t, []string{"aa", "bb", "cc", "dd"}, sortedNames(sortStatusAsc))
	assert.Equal(t, []string{"dd", "cc", "bb", "aa"}, sortedNames(sortStatusDesc))
}

func TestSortOrderString(t *testing.T) {
	assert.Equal(t, "name", sortNameAsc.String())
	assert.Equal(t, "size desc", sortSizeDesc.String())
	assert.Equal(t, "status", sortStatusAsc.String())
}
