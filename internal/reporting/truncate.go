package reporting

import "github.com/mattn/go-runewidth"

// Truncate shortens s to at most width terminal cells, ending in an ellipsis
// when anything was cut.
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
