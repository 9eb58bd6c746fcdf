package pipeline

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// samplePages returns up to size distinct page numbers from 1..total, sorted.
func samplePages(total, size int) []int {
	n := min(total, size)
	if n <= 0 {
		return []int{}
	}

	pages := rand.Perm(total)[:n]
	for i := range pages {
		pages[i]++
	}
	slices.Sort(pages)
	return pages
}

func highlights(total, count int) []Highlight {
	pages := samplePages(total, count)
	out := make([]Highlight, len(pages))
	for i, page := range pages {
		out[i] = Highlight{Page: page, Text: fmt.Sprintf("Highlight on page %d", page)}
	}
	return out
}
