package subaru

import (
	"strconv"
	"strings"
)

// DepSpec is one parsed dependency token from a depends list.
type DepSpec struct {
	Name    string
	Op      string // one of: "<=", ">=", "==", "<", ">", or empty for no constraint
	Version string
}

func (d DepSpec) String() string {
	if d.Op == "" {
		return d.Name
	}
	return d.Name + d.Op + d.Version
}

// parseDepToken parses tokens like "pkg" or "pkg>=1.2.3" into name, op and
// version. Trailing whitespace-separated flags are ignored.
func parseDepToken(token string) (string, string, string) {
	parts := strings.Fields(token)
	if len(parts) == 0 {
		return "", "", ""
	}
	pkgSpec := parts[0]

	ops := []string{"<=", ">=", "==", "<", ">"}
	for _, op := range ops {
		if idx := strings.Index(pkgSpec, op); idx != -1 {
			name := pkgSpec[:idx]
			ver := pkgSpec[idx+len(op):]
			return strings.TrimSpace(name), op, strings.TrimSpace(ver)
		}
	}
	return pkgSpec, "", ""
}

// parseDependsData parses the contents of a depends file or index depends
// list. Blank lines and comments are skipped.
func parseDependsData(data []byte) []DepSpec {
	var deps []DepSpec
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, op, ver := parseDepToken(line)
		if name == "" {
			continue
		}
		deps = append(deps, DepSpec{Name: name, Op: op, Version: ver})
	}
	return deps
}

// versionSatisfies reports whether version have satisfies "op ref".
// An empty op means any version satisfies.
func versionSatisfies(have, op, ref string) bool {
	cmp := compareVersions(have, ref)
	switch op {
	case "==":
		return cmp == 0
	case "<=":
		return cmp <= 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case ">":
		return cmp > 0
	default:
		return true
	}
}

// compareVersions compares two version strings split by dots. Numeric
// segments are compared numerically; non-numeric fall back to
// lexicographic. Returns -1 if a<b, 0 if equal, 1 if a>b.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := "0", "0"
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}

		ai, aerr := strconv.Atoi(av)
		bi, berr := strconv.Atoi(bv)
		if aerr == nil && berr == nil {
			if ai < bi {
				return -1
			}
			if ai > bi {
				return 1
			}
			continue
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// isNewer reports whether candidate is strictly newer than installed,
// taking the package revision into account when versions tie.
func isNewer(candVer, candRev, instVer, instRev string) bool {
	switch compareVersions(candVer, instVer) {
	case 1:
		return true
	case -1:
		return false
	}
	return compareVersions(candRev, instRev) == 1
}
