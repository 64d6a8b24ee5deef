// Package scroll decides whether a log view should stay pinned to the newest
// line after an append.
package scroll

// DefaultThreshold is how many rows above the bottom still count as
// "at the bottom".
const DefaultThreshold = 5

// Metrics describe a scrollable view. All values are in rows.
type Metrics struct {
	Offset  int // first visible row
	Visible int // rows on screen
	Total   int // rows of content
}

// NearBottom reports whether the view is within threshold rows of the end.
// Call it before appending; if true, jump to the new bottom afterwards.
func NearBottom(m Metrics, threshold int) bool {
	if threshold < 0 {
		threshold = 0
	}
	maxOffset := m.Total - m.Visible
	if maxOffset <= 0 {
		return true
	}
	return maxOffset <= m.Offset+threshold
}
