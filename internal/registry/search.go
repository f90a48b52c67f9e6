package registry

import (
	"slices"
	"strings"

	"github.com/teamcutter/cubepkg/internal/domain"
)

// Search returns the entries whose id or name contains query, exact id
// matches first, then id prefix matches, then the rest by id.
func Search(entries []domain.Entry, query string) []domain.Entry {
	query = strings.ToLower(query)

	var results []domain.Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.ID), query) ||
			strings.Contains(strings.ToLower(e.Metadata.Name), query) {
			results = append(results, e)
		}
	}

	slices.SortFunc(results, func(a, b domain.Entry) int {
		idA := strings.ToLower(a.ID)
		idB := strings.ToLower(b.ID)

		if (idA == query) != (idB == query) {
			if idA == query {
				return -1
			}
			return 1
		}

		if strings.HasPrefix(idA, query) != strings.HasPrefix(idB, query) {
			if strings.HasPrefix(idA, query) {
				return -1
			}
			return 1
		}

		return strings.Compare(idA, idB)
	})

	return results
}
