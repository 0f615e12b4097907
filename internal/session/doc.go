// Package session runs one debugging session end to end.
//
// A Controller selects a target and a process, injects debugpy, forwards
// the debug port and then monitors the target. In reload mode a restarted
// worker is re-injected in place; when the target goes away the controller
// looks for a replacement and starts over against it. All state lives on the
// single goroutine that calls Run, and cleanup runs exactly once on every
// exit path.
package session
