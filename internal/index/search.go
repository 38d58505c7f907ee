package index

import "strings"

const defaultSearchLimit = 50

// SearchResult is one search hit.
type SearchResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// titleBoost is a coarse relevance layer on top of rank ordering: a
// literal substring match on the title scores 2, anything else 1, so
// title matches sort at least as well as pure content matches.
func titleBoost(title, query string) int {
	if strings.Contains(strings.ToLower(title), strings.ToLower(query)) {
		return 2
	}
	return 1
}
