// Package utils holds the small parsing and paging helpers shared by the
// operator API handlers and the feedback services.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int. Empty or malformed input (leading
// spaces included) yields def.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Offset returns the row offset of a 1-based page. Pages below 1 map to 0.
func Offset(page, size int) int {
	if page < 1 || size < 1 {
		return 0
	}
	return (page - 1) * size
}

// TotalPages is ceil(total/size); 0 for an empty set or a non-positive size.
func TotalPages(total int64, size int) int {
	if total <= 0 || size < 1 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
