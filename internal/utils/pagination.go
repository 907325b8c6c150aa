// Package utils holds small helpers shared by the HTTP and service layers.
package utils

import (
	"math"
	"strconv"
)

// Window is one page of a listing: a 1-based page number and its size.
type Window struct {
	Page    int
	PerPage int
}

// ParseWindow reads raw page and per_page query values. A missing, malformed
// or non-positive page becomes 1; per_page falls back to defPer and is then
// clamped to [1, maxPer]. page is capped at MaxPage(perPage).
func ParseWindow(page, perPage string, defPer, maxPer int) Window {
	per := Clamp(AtoiDefault(perPage, defPer), 1, maxPer)
	return Window{
		Page:    Clamp(AtoiDefault(page, 1), 1, MaxPage(per)),
		PerPage: per,
	}
}

// MaxPage is the largest page number whose rows can be addressed with an int
// offset at the given page size.
func MaxPage(perPage int) int {
	if perPage < 1 {
		return math.MaxInt
	}
	return math.MaxInt / perPage
}

// Offset is the number of rows before the window. It never overflows: pages
// beyond MaxPage are treated as MaxPage.
func (w Window) Offset() int {
	if w.Page < 1 || w.PerPage < 1 {
		return 0
	}
	return (min(w.Page, MaxPage(w.PerPage)) - 1) * w.PerPage
}

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a number. Surrounding spaces are not trimmed.
func AtoiDefault(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds n to [lo, hi]. When hi < lo, lo wins.
func Clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
