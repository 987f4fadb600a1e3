package cli

import (
	"sort"
	"strings"
)

// SortOrder represents the available sorting options for extracted courses
type SortOrder string

const (
	SortByPage SortOrder = "page"
	SortByCode SortOrder = "code"
)

// sortCourses sorts rows in place. Page order keeps the order courses appear on each page.
func sortCourses(rows []*courseRow, order SortOrder) {
	if order != SortByCode {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return compareByCode(rows[i].Code, rows[j].Code)
	})
}

// compareByCode orders by subject, then by course number, ignoring case
func compareByCode(a, b string) bool {
	subjA, numA := splitCode(a)
	subjB, numB := splitCode(b)
	if subjA != subjB {
		return subjA < subjB
	}
	return numA < numB
}

func splitCode(code string) (subject, number string) {
	code = strings.ToUpper(code)
	if i := strings.IndexByte(code, ' '); i >= 0 {
		return code[:i], strings.TrimSpace(code[i+1:])
	}
	return code, ""
}
