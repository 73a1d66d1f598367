package feed

import "strings"

type Filter struct {
	Tab   string
	Query string
}

// Project selects the tab's slice and applies the search. The result is a
// new slice; res is never modified.
func Project(res Result, f Filter) []Entry {
	return Search(res.Tab(f.Tab), f.Query)
}

// Search keeps entries whose title, description or any skill contains query,
// case-insensitively. A blank query returns a copy of list.
func Search(list []Entry, query string) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Entry, 0, len(list))
	for _, e := range list {
		if q == "" || matches(e, q) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e Entry, q string) bool {
	if strings.Contains(strings.ToLower(e.Post.Title), q) ||
		strings.Contains(strings.ToLower(e.Post.Description), q) {
		return true
	}
	for _, s := range e.Post.Skills() {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}
