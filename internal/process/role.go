package process

import "strings"

// Role is the label shown next to a process in listings.
type Role string

const (
	RoleRecommended Role = "recommended"
	RoleParent      Role = "parent"
	RoleWorker      Role = "worker"
	RoleHelper      Role = "helper"
	RoleDebugger    Role = "debugger"
	RoleMain        Role = "main"
	RoleOther       Role = ""
)

// Recommended returns the PID a non-interactive session would pick: the
// reload worker when there is one, otherwise the first main candidate.
// It returns 0 when ps is empty.
func Recommended(ps []Record) int {
	if reload, worker := DetectReloadMode(ps); reload && worker != nil {
		return worker.PID
	}
	for _, p := range ps {
		if IsMainCandidate(p) {
			return p.PID
		}
	}
	if len(ps) > 0 {
		return ps[0].PID
	}
	return 0
}

// Classify labels p relative to the rest of the listing.
func Classify(p Record, ps []Record) Role {
	reload, _ := DetectReloadMode(ps)
	switch {
	case p.PID == Recommended(ps):
		return RoleRecommended
	case strings.Contains(p.Command, "debugpy"):
		return RoleDebugger
	case IsWorker(p):
		return RoleWorker
	case containsAny(p.Command, helperPatterns):
		return RoleHelper
	case reload && p.PID == 1:
		return RoleParent
	case IsMainCandidate(p):
		return RoleMain
	default:
		return RoleOther
	}
}
