package sheet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseSelector parses a spreadsheet-style column selector such as "A:C",
// "B" or "A,C:E" into zero-based column indexes, ascending and deduplicated.
// An empty selector means "all columns" and yields a nil slice.
func ParseSelector(selector string) ([]int, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	var indexes []int

	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("column selector %q contains an empty segment", selector)
		}

		lo, hi, err := parseRange(part)
		if err != nil {
			return nil, fmt.Errorf("column selector %q: %w", selector, err)
		}
		for i := lo; i <= hi; i++ {
			if !seen[i] {
				seen[i] = true
				indexes = append(indexes, i)
			}
		}
	}

	sort.Ints(indexes)
	return indexes, nil
}

// parseRange parses "A" or "A:C" into an inclusive zero-based index range.
func parseRange(part string) (lo, hi int, err error) {
	bounds := strings.SplitN(part, ":", 2)

	lo, err = columnIndex(bounds[0])
	if err != nil {
		return 0, 0, err
	}
	hi = lo

	if len(bounds) == 2 {
		hi, err = columnIndex(bounds[1])
		if err != nil {
			return 0, 0, err
		}
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("range %q is inverted", part)
	}
	return lo, hi, nil
}

// columnIndex converts a column letter ("A", "AB") to a zero-based index.
func columnIndex(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("invalid column name %q", name)
	}
	return n - 1, nil
}
