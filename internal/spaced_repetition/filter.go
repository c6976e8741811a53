package spaced_repetition

import "strconv"

// CategoryFilter selects either every category or exactly one
type CategoryFilter struct {
	all bool
	id  int64
}

// AllCategories matches challenges of any category
func AllCategories() CategoryFilter {
	return CategoryFilter{all: true}
}

// InCategory matches challenges of the category with the given id only
func InCategory(id int64) CategoryFilter {
	return CategoryFilter{id: id}
}

// IsAll reports whether the filter matches every category
func (f CategoryFilter) IsAll() bool {
	return f.all
}

// CategoryID returns the selected category id and false for the all filter
func (f CategoryFilter) CategoryID() (int64, bool) {
	return f.id, !f.all
}

// Matches reports whether a challenge in categoryID passes the filter
func (f CategoryFilter) Matches(categoryID int64) bool {
	return f.all || f.id == categoryID
}

func (f CategoryFilter) String() string {
	if f.all {
		return "all"
	}
	return strconv.FormatInt(f.id, 10)
}
