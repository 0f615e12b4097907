package process

import "strings"

var helperPatterns = []string{
	"multiprocessing.resource_tracker",
	"multiprocessing.spawn",
	"from multiprocessing",
}

var serverPatterns = []string{
	"fastapi run",
	"gunicorn",
	"uvicorn",
	"flask run",
	"python -m",
	"python app.py",
	"python main.py",
	"hypercorn",
	"daphne",
	"manage.py runserver",
}

const reloadFlag = "--reload"

// IsMainCandidate reports whether p looks like the application entrypoint
// rather than a multiprocessing helper or an unrelated script.
func IsMainCandidate(p Record) bool {
	if containsAny(p.Command, helperPatterns) {
		return false
	}
	if p.PID == 1 {
		return true
	}
	return containsAny(p.Command, serverPatterns)
}

// IsWorker reports whether p is a multiprocessing spawn child.
func IsWorker(p Record) bool {
	return strings.Contains(p.Command, "multiprocessing.spawn") && strings.Contains(p.Command, "spawn_main")
}

// DetectReloadMode reports whether pid 1 runs with --reload. In reload mode
// the returned record is the first worker in enumeration order, or nil when
// the worker is momentarily absent (for example mid-restart).
func DetectReloadMode(ps []Record) (bool, *Record) {
	pid1, ok := Find(ps, 1)
	if !ok || !hasToken(pid1.Command, reloadFlag) {
		return false, nil
	}
	for i := range ps {
		if IsWorker(ps[i]) {
			w := ps[i]
			return true, &w
		}
	}
	return true, nil
}

// Workers returns every worker process in enumeration order.
func Workers(ps []Record) []Record {
	var out []Record
	for _, p := range ps {
		if IsWorker(p) {
			out = append(out, p)
		}
	}
	return out
}

// MainCandidates filters ps to main candidates, falling back to the full
// list when none qualify.
func MainCandidates(ps []Record) []Record {
	var out []Record
	for _, p := range ps {
		if IsMainCandidate(p) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return ps
	}
	return out
}

func hasToken(command, token string) bool {
	for _, f := range strings.Fields(command) {
		if f == token {
			return true
		}
	}
	return false
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
