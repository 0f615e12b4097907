// Package capability checks whether a target is allowed to trace its own
// processes, which attaching a debugger requires.
package capability
