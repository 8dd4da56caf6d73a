// Package ident issues the identifiers carried by generated items.
//
// Generated ids are a constant prefix followed by a zero-padded counter
// ("id_00000001"), so they sort lexically in creation order. The root folder
// uses RootID, which never collides with a generated id.
package ident

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// RootID is the reserved id of the root folder.
	RootID = "0"

	// DefaultPrefix is the tag prepended to every generated id.
	DefaultPrefix = "id_"

	// DefaultWidth is the zero-padded width of the numeric part.
	DefaultWidth = 8
)

// Allocator hands out strictly increasing ids. It is not safe for concurrent
// use; a generation run owns exactly one.
type Allocator struct {
	prefix string
	width  int
	next   int
}

// NewAllocator returns an allocator whose first id is prefix + 1 padded to
// width digits. Empty prefix and non-positive width fall back to defaults.
func NewAllocator(prefix string, width int) *Allocator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if width <= 0 {
		width = DefaultWidth
	}
	return &Allocator{prefix: prefix, width: width, next: 1}
}

// Next returns a fresh id.
func (a *Allocator) Next() string {
	id := a.format(a.next)
	a.next++
	return id
}

// Issued returns how many ids have been handed out.
func (a *Allocator) Issued() int {
	return a.next - 1
}

func (a *Allocator) format(n int) string {
	return fmt.Sprintf("%s%0*d", a.prefix, a.width, n)
}

// Seq extracts the counter from a generated id. The root id yields 0.
func (a *Allocator) Seq(id string) (int, bool) {
	if id == RootID {
		return 0, true
	}
	if !strings.HasPrefix(id, a.prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(a.prefix):])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Less reports whether id a was issued before id b. The root sorts first.
// Ids of equal width compare lexically.
func Less(a, b string) bool {
	if a == b {
		return false
	}
	if a == RootID {
		return true
	}
	if b == RootID {
		return false
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
