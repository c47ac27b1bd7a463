// Package rule defines context rule records and the glob matching used to
// decide whether a rule applies to a file path.
//
// A rule is described by the front matter of a rule file:
//
//	---
//	patterns: ["src/**/*.tsx"]
//	ignorePatterns: "**/*.test.tsx"
//	priority: 3
//	order: 10
//	tags: [react]
//	referencesAlways: [style]
//	referencesIfTop: [testing]
//	---
//
// Patterns use shell glob semantics via [github.com/bmatcuk/doublestar/v4]:
// `*`, `**`, `?`, character classes (`[a-z]`) and brace sets (`{a,b}`).
package rule
