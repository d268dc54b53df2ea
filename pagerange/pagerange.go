// Package pagerange resolves user-entered page range specifications such as
// "1,3,5-7" into 0-based page indices.
package pagerange

import (
	"sort"
	"strconv"
	"strings"
)

// Select parses spec against a document of totalPages pages and returns the
// selected 0-based indices, sorted ascending with duplicates suppressed.
//
// An empty spec or "all" (case-insensitive) selects every page.  Parts are
// comma-separated; each part is a single 1-based page number or a 1-based
// inclusive "start-end" range.  Out-of-bounds numbers are dropped, ranges are
// clipped at the document length, and malformed parts are ignored rather than
// reported: a sloppy range string is a warning condition, never an error.
func Select(spec string, totalPages int) []int {
	result := make([]int, 0, totalPages)
	if totalPages <= 0 {
		return result
	}

	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "all") {
		for i := 0; i < totalPages; i++ {
			result = append(result, i)
		}
		return result
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			start, err1 := strconv.Atoi(strings.TrimSpace(bounds[0]))
			end, err2 := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err1 != nil || err2 != nil {
				continue
			}
			for i := start - 1; i < end && i < totalPages; i++ {
				if i >= 0 && !seen[i] {
					seen[i] = true
					result = append(result, i)
				}
			}
			continue
		}

		page, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		idx := page - 1
		if idx >= 0 && idx < totalPages && !seen[idx] {
			seen[idx] = true
			result = append(result, idx)
		}
	}

	sort.Ints(result)
	return result
}
