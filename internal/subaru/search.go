package subaru

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// FilterRecords narrows a record set by a search query. Exact substring
// hits on the name rank first, then fuzzy matches on name and
// description. An empty query returns the input unchanged.
func FilterRecords(records []PackageRecord, query string) []PackageRecord {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}

	lower := strings.ToLower(query)
	var exact []PackageRecord
	seen := make(map[PackageID]bool)
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), lower) {
			exact = append(exact, r)
			seen[r.ID] = true
		}
	}

	haystack := make([]string, len(records))
	for i, r := range records {
		haystack[i] = r.Name + " " + r.Description
	}
	out := exact
	for _, m := range fuzzy.Find(query, haystack) {
		r := records[m.Index]
		if seen[r.ID] {
			continue
		}
		out = append(out, r)
	}
	return out
}
