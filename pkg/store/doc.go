// Package store reads and writes the rule cache.
//
// The cache is a single JSON file mapping agent names to their rule records,
// generated by scanning the project for rule files. [Cache] serves those
// records, and the bodies of the rule files they point to, to the resolver.
package store
