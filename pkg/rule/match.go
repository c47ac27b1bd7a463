package rule

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrBadPattern is returned for malformed glob patterns.
var ErrBadPattern = doublestar.ErrBadPattern

// MatchAny reports whether filePath matches any of the patterns. Both sides
// are cleaned first, so "./src/*.go" and "src/*.go" are the same pattern.
// Malformed patterns never match; they are rejected earlier by
// [ValidatePatterns] when the rule cache is generated.
func MatchAny(filePath string, patterns ...string) bool {
	name := Normalize(filePath)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}

		// Patterns are not passed through ToSlash: backslashes are escapes.
		ok, err := doublestar.Match(path.Clean(pattern), name)
		if err != nil {
			slog.Debug("skip malformed pattern",
				slog.String("pattern", pattern),
				slog.Any("err", err),
			)

			continue
		}
		if ok {
			return true
		}
	}

	return false
}

// ValidatePatterns returns an error wrapping [ErrBadPattern] for the first
// malformed pattern.
func ValidatePatterns(patterns ...string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
	}

	return nil
}

// Normalize converts a file path to the slash-separated, relative form that
// patterns are written against: "./src/a.go" and "src//a.go" both become
// "src/a.go".
func Normalize(filePath string) string {
	return path.Clean(filepath.ToSlash(filePath))
}
