package catalog

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// MinQueryLength is the shortest settled query that filters anything.
const MinQueryLength = 3

// DeriveCategories lists each distinct category once, in order of first
// appearance.
func DeriveCategories(products []Product) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 8)
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// ByCategory narrows products to one category. AllCategories returns the
// input slice itself; an unloaded (nil) catalog yields an empty slice.
func ByCategory(products []Product, category string) []Product {
	if products == nil {
		return []Product{}
	}
	if category == AllCategories || category == "" {
		return products
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Search keeps candidates whose title or description contains query,
// ignoring case. Queries shorter than minLen runes match nothing.
func Search(query string, candidates []Product, minLen int) []Product {
	if utf8.RuneCountInString(query) < minLen {
		return []Product{}
	}

	q := strings.ToLower(query)
	out := make([]Product, 0, len(candidates))
	for _, p := range candidates {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}

// CategoryFilter holds the selected category.
type CategoryFilter struct {
	mu       sync.RWMutex
	selected string
}

func NewCategoryFilter() *CategoryFilter {
	return &CategoryFilter{selected: AllCategories}
}

// Select switches to label, or back to AllCategories when label is already
// selected, and returns the resulting selection.
func (f *CategoryFilter) Select(label string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if label == "" || label == f.selected {
		label = AllCategories
	}
	f.selected = label
	return label
}

func (f *CategoryFilter) Selected() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.selected
}
