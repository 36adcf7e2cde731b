package helper

import "strings"

// QueryPreview collapses whitespace in query and cuts it to max runes.
func QueryPreview(query string, max int) string {
	q := strings.Join(strings.Fields(query), " ")

	r := []rune(q)
	if len(r) <= max {
		return q
	}

	return string(r[:max]) + "..."
}
