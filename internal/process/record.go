package process

import (
	"strconv"
	"strings"
)

// Record is one row of a process listing taken inside a target.
type Record struct {
	PID     int
	User    string
	CPU     float64
	Mem     float64
	Command string
}

// psFields is the column count of `ps aux`; the last column is the command
// and may itself contain spaces.
const psFields = 11

// ParsePS parses `ps aux` output and keeps only python processes.
// The header and malformed lines are skipped.
func ParsePS(output string) []Record {
	var records []Record
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(strings.ToLower(line), "python") {
			continue
		}
		rec, ok := parseLine(line)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func parseLine(line string) (Record, bool) {
	fields := splitFields(line, psFields)
	if len(fields) < psFields {
		return Record{}, false
	}
	pid, err := strconv.Atoi(fields[1])
	if err != nil || pid <= 0 {
		return Record{}, false
	}
	cpu, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Record{}, false
	}
	mem, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Record{}, false
	}
	return Record{
		PID:     pid,
		User:    fields[0],
		CPU:     cpu,
		Mem:     mem,
		Command: fields[psFields-1],
	}, true
}

// splitFields splits on runs of whitespace into at most n fields. The last
// field holds the unsplit remainder.
func splitFields(s string, n int) []string {
	var out []string
	s = strings.TrimSpace(s)
	for len(out) < n-1 && s != "" {
		i := strings.IndexAny(s, " \t")
		if i < 0 {
			break
		}
		out = append(out, s[:i])
		s = strings.TrimLeft(s[i:], " \t")
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// PIDs returns the PIDs of records in enumeration order.
func PIDs(records []Record) []int {
	pids := make([]int, 0, len(records))
	for _, r := range records {
		pids = append(pids, r.PID)
	}
	return pids
}

// Find returns the record with the given PID.
func Find(records []Record, pid int) (Record, bool) {
	for _, r := range records {
		if r.PID == pid {
			return r, true
		}
	}
	return Record{}, false
}
