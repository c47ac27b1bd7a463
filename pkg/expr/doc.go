// Package expr provides CEL (Common Expression Language) environments for
// filtering cached rules.
//
// Expressions have access to the variable `rule`, a map with the keys
// path, agent, patterns, ignorePatterns, tags, referencesIfTop and
// referencesAlways. The keys priority and order are present only when set,
// so use `has(rule.priority)` before comparing them.
//
// Custom functions:
//   - glob(pattern, path) reports whether path matches a rule glob
//   - pathBase, pathDir and pathExt split slash-separated paths
//
// Examples:
//
//	"frontend" in rule.tags
//	has(rule.priority) && rule.priority <= 3
//	rule.patterns.exists(p, glob(p, "src/app.tsx"))
package expr
