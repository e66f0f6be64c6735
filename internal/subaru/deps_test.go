package subaru

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDepToken(t *testing.T) {
	cases := []struct {
		token   string
		name    string
		op      string
		version string
	}{
		{"zlib", "zlib", "", ""},
		{"zlib>=1.2", "zlib", ">=", "1.2"},
		{"zlib<=1.2.11", "zlib", "<=", "1.2.11"},
		{"zlib==1.3", "zlib", "==", "1.3"},
		{"zlib<2", "zlib", "<", "2"},
		{"zlib>1", "zlib", ">", "1"},
		{"zlib>=1.2 extra junk", "zlib", ">=", "1.2"},
		{"", "", "", ""},
	}
	for _, c := range cases {
		name, op, ver := parseDepToken(c.token)
		assert.Equal(t, c.name, name, c.token)
		assert.Equal(t, c.op, op, c.token)
		assert.Equal(t, c.version, ver, c.token)
	}
}

func TestParseDependsData(t *testing.T) {
	data := []byte("# runtime deps\nzlib>=1.2\n\nopenssl\n  \n# trailing comment\n")
	deps := parseDependsData(data)
	assert.Equal(t, []DepSpec{
		{Name: "zlib", Op: ">=", Version: "1.2"},
		{Name: "openssl"},
	}, deps)
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, 0, compareVersions("1.2.3", "1.2.3"))
	assert.Equal(t, -1, compareVersions("1.2", "1.10"))
	assert.Equal(t, 1, compareVersions("2.0", "1.99.99"))
	assert.Equal(t, 0, compareVersions("1.2", "1.2.0"))
	assert.Equal(t, -1, compareVersions("1.2", "1.2.1"))
	// Non-numeric segments fall back to string comparison.
	assert.Equal(t, -1, compareVersions("1.2a", "1.2b"))
}

func TestVersionSatisfies(t *testing.T) {
	assert.True(t, versionSatisfies("1.2.3", ">=", "1.2"))
	assert.False(t, versionSatisfies("1.1", ">=", "1.2"))
	assert.True(t, versionSatisfies("1.2", "==", "1.2.0"))
	assert.True(t, versionSatisfies("1.2", "<=", "1.2"))
	assert.False(t, versionSatisfies("1.3", "<", "1.3"))
	assert.True(t, versionSatisfies("1.4", ">", "1.3"))
	// No constraint means anything goes.
	assert.True(t, versionSatisfies("0.0.1", "", ""))
}

func TestIsNewer(t *testing.T) {
	assert.True(t, isNewer("2.0", "1", "1.9", "5"))
	assert.False(t, isNewer("1.9", "9", "2.0", "1"))
	// Same version, higher revision wins.
	assert.True(t, isNewer("1.0", "2", "1.0", "1"))
	assert.False(t, isNewer("1.0", "1", "1.0", "1"))
}

func TestDepSpecString(t *testing.T) {
	assert.Equal(t, "zlib", DepSpec{Name: "zlib"}.String())
	assert.Equal(t, "zlib>=1.2", DepSpec{Name: "zlib", Op: ">=", Version: "1.2"}.String())
}
