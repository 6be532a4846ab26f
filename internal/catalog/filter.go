package catalog

import (
	"sort"
	"strings"

	"github.com/terra-clan/projecthub/internal/models"
)

// All disables a category or difficulty filter
const All = "all"

// Filter narrows the catalog view
type Filter struct {
	Search     string
	Category   string
	Difficulty string
}

// SortOrder selects the catalog ordering
type SortOrder string

const (
	SortPopular    SortOrder = "popular"    // popularity, highest first
	SortDuration   SortOrder = "duration"   // duration text, lexicographic
	SortComplexity SortOrder = "complexity" // complexity, lowest first
)

// Matches reports whether a topic passes the filter
func (f Filter) Matches(t *models.Topic) bool {
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	if f.Category != "" && f.Category != All && string(t.Category) != f.Category {
		return false
	}
	if f.Difficulty != "" && f.Difficulty != All && string(t.Difficulty) != f.Difficulty {
		return false
	}
	return true
}

// Apply filters and stably sorts topics. Unknown orders keep input order.
func Apply(topics []models.Topic, filter Filter, order SortOrder) []models.Topic {
	result := make([]models.Topic, 0, len(topics))
	for i := range topics {
		if filter.Matches(&topics[i]) {
			result = append(result, topics[i])
		}
	}

	var less func(a, b *models.Topic) bool
	switch order {
	case SortPopular:
		less = func(a, b *models.Topic) bool { return a.Popularity > b.Popularity }
	case SortDuration:
		less = func(a, b *models.Topic) bool { return a.Duration < b.Duration }
	case SortComplexity:
		less = func(a, b *models.Topic) bool { return a.Complexity < b.Complexity }
	default:
		return result
	}

	sort.SliceStable(result, func(i, j int) bool {
		return less(&result[i], &result[j])
	})
	return result
}
