// Package workspace ties the project configuration, the rule cache and the
// resolver together for one project root.
//
// All paths are relative to the project root, which is the root of the
// [afero.Fs] given to [New].
package workspace
