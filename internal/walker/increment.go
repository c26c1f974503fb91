package walker

// NextIncrement returns the size of the next page request given how many
// nodes were already received, the latest server-reported total and the
// configured maximum page size. Zero means the walk is complete.
func NextIncrement(fetched, total, maxIncrement int) int {
	if maxIncrement < 1 {
		maxIncrement = 1
	}
	if fetched >= total {
		return 0
	}
	if delta := total - fetched; delta <= maxIncrement {
		return delta
	}
	return maxIncrement
}
