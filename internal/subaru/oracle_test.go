package subaru

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainUniverse sets up a three-link chain of upgrades:
// top needs mid>=2.0, mid needs bottom>=2.0, all installed at 1.0.
func chainUniverse() *Universe {
	index := []RepoEntry{
		{Name: "top", Version: "2.0", Revision: "1", Depends: []string{"mid>=2.0"}},
		{Name: "mid", Version: "2.0", Revision: "1", Depends: []string{"bottom>=2.0"}},
		{Name: "bottom", Version: "2.0", Revision: "1"},
	}
	installed := []InstalledPackage{
		{Name: "top", Version: "1.0", Revision: "1", Depends: []DepSpec{{Name: "mid", Op: ">=", Version: "1.0"}}},
		{Name: "mid", Version: "1.0", Revision: "1", Depends: []DepSpec{{Name: "bottom", Op: ">=", Version: "1.0"}}},
		{Name: "bottom", Version: "1.0", Revision: "1"},
	}
	return NewUniverse(index, installed)
}

func TestRequiredAdditionsTransitive(t *testing.T) {
	o := NewOracle(chainUniverse())

	adds, err := o.RequiredAdditions("top", MarkSnapshot{})
	require.NoError(t, err)
	// Dependency order: bottom before mid.
	assert.Equal(t, []PackageID{"bottom", "mid"}, adds)
}

func TestRequiredAdditionsSeesExistingMarks(t *testing.T) {
	o := NewOracle(chainUniverse())

	marks := MarkSnapshot{"mid": MarkUpgrade, "bottom": MarkUpgrade}
	adds, err := o.RequiredAdditions("top", marks)
	require.NoError(t, err)
	assert.Empty(t, adds)
}

func TestRequiredAdditionsRemoveMarkBreaksDep(t *testing.T) {
	o := NewOracle(chainUniverse())

	// bottom is going away, so an upgrade of mid has to re-add it.
	adds, err := o.RequiredAdditions("mid", MarkSnapshot{"bottom": MarkRemove})
	require.NoError(t, err)
	assert.Equal(t, []PackageID{"bottom"}, adds)
}

func TestRequiredAdditionsUnknownTarget(t *testing.T) {
	o := NewOracle(chainUniverse())

	_, err := o.RequiredAdditions("ghost", MarkSnapshot{})
	assert.ErrorIs(t, err, errPackageNotFound)
}

func TestDependentsBreakingTransitiveChain(t *testing.T) {
	o := NewOracle(chainUniverse())

	marks := MarkSnapshot{"top": MarkUpgrade, "mid": MarkUpgrade, "bottom": MarkUpgrade}
	broken := o.DependentsBreakingIfUnmarked("bottom", marks)
	// Losing bottom breaks mid directly and top through mid.
	assert.Equal(t, []PackageID{"mid", "top"}, broken)
}

func TestDependentsBreakingLeaf(t *testing.T) {
	o := NewOracle(chainUniverse())

	marks := MarkSnapshot{"top": MarkUpgrade, "mid": MarkUpgrade, "bottom": MarkUpgrade}
	assert.Empty(t, o.DependentsBreakingIfUnmarked("top", marks))
}

func TestInstalledRequiringTransitive(t *testing.T) {
	o := NewOracle(chainUniverse())

	req := o.InstalledRequiring("bottom", nil)
	assert.Equal(t, []PackageID{"mid", "top"}, req)
}

func TestInstalledRequiringSkipsAlreadyRemoveMarked(t *testing.T) {
	o := NewOracle(chainUniverse())

	req := o.InstalledRequiring("bottom", MarkSnapshot{"mid": MarkRemove})
	// mid is already going; top still has to be reported, through mid.
	assert.Equal(t, []PackageID{"top"}, req)
}
