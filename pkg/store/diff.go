package store

import (
	"github.com/aymanbagabas/go-udiff"
)

// Diff returns a unified diff from the cache contents old to new, or an
// empty string when they are equal.
func Diff(name string, old, new []byte) string {
	if string(old) == string(new) {
		return ""
	}

	return udiff.Unified(name+" (current)", name+" (generated)", string(old), string(new))
}
