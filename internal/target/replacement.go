package target

import (
	"sort"
)

const (
	LabelKnativeRevision = "serving.knative.dev/revision"
	LabelKnativeService  = "serving.knative.dev/service"
	LabelPodTemplateHash = "pod-template-hash"
	LabelAppInstance     = "app.kubernetes.io/instance"
	LabelApp             = "app"
)

// Outcome tells a LookupResult apart.
type Outcome int

const (
	NotFound Outcome = iota
	Found
)

// LookupResult is the result of a replacement lookup. Target is only set
// when Outcome is Found; Reason explains a NotFound.
type LookupResult struct {
	Outcome Outcome
	Target  Target
	// Matched names the correlation label that matched, or "" for a fallback.
	Matched string
	Reason  string
}

func FoundTarget(t Target, matched string) LookupResult {
	return LookupResult{Outcome: Found, Target: t, Matched: matched}
}

func NotFoundResult(reason string) LookupResult {
	return LookupResult{Outcome: NotFound, Reason: reason}
}

// CorrelationKeys returns the label keys used to recognise a successor of
// old, in priority order.
func CorrelationKeys(old Target) []string {
	if _, ok := old.Labels[LabelKnativeRevision]; ok {
		return []string{LabelKnativeService}
	}
	return []string{LabelPodTemplateHash, LabelAppInstance, LabelApp}
}

// FindReplacement picks the target most likely to have replaced old.
//
// Pods are replaced by new incarnations with new names, so old itself is
// excluded. A restarted container keeps its name and is a valid successor.
// Among running candidates sharing a correlation label value with old the
// newest wins; otherwise the newest running candidate is used.
func FindReplacement(old Target, candidates []Target) LookupResult {
	var running []Target
	for _, c := range candidates {
		if !c.Running() {
			continue
		}
		if old.Kind == KindPod && c.Identity() == old.Identity() {
			continue
		}
		running = append(running, c)
	}
	if len(running) == 0 {
		return NotFoundResult("no running replacement for " + old.String())
	}

	for _, key := range CorrelationKeys(old) {
		want, ok := old.Labels[key]
		if !ok || want == "" {
			continue
		}
		var matches []Target
		for _, c := range running {
			if c.Labels[key] == want {
				matches = append(matches, c)
			}
		}
		if len(matches) > 0 {
			return FoundTarget(Newest(matches), key)
		}
	}

	return FoundTarget(Newest(running), "")
}

// Newest returns the target with the latest creation time. Ties are broken
// by name so the choice is deterministic. ts must not be empty.
func Newest(ts []Target) Target {
	sorted := SortNewestFirst(ts)
	return sorted[0]
}

// SortNewestFirst returns a copy of ts ordered by creation time, newest first.
func SortNewestFirst(ts []Target) []Target {
	out := append([]Target(nil), ts...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// RunningOnly filters ts down to running targets.
func RunningOnly(ts []Target) []Target {
	var out []Target
	for _, t := range ts {
		if t.Running() {
			out = append(out, t)
		}
	}
	return out
}
