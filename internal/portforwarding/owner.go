package portforwarding

import (
	"fmt"
	"net"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// For mocking in tests
var commandOutput = func(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}


// IsPortAvailable reports whether 127.0.0.1:port can be bound right now.
func IsPortAvailable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// IsStaleForwarder reports whether o looks like a forwarder left behind by an
// earlier debug session on the same ports: another debugwand, or a
// port-forward whose port spec maps localPort to remotePort.
func IsStaleForwarder(o Owner, localPort, remotePort int) bool {
	cmd := strings.ToLower(o.Command)
	if strings.Contains(cmd, "debugwand") {
		return true
	}
	if !strings.Contains(cmd, "port-forward") {
		return false
	}
	for _, field := range strings.Fields(cmd) {
		local, remote, found := strings.Cut(field, ":")
		if !found {
			remote = local
		}
		if local == strconv.Itoa(localPort) && remote == strconv.Itoa(remotePort) {
			return true
		}
	}
	return false
}

// ProbeOwner finds the process listening on port. It is best effort: when
// neither lsof nor ss is installed it reports false.
func ProbeOwner(port int) (Owner, bool) {
	pid, ok := lsofListener(port)
	if !ok {
		pid, ok = ssListener(port)
	}
	if !ok {
		return Owner{}, false
	}
	return Owner{PID: pid, Command: commandOf(pid)}, true
}

func lsofListener(port int) (int, bool) {
	out, err := commandOutput("lsof", "-nP", fmt.Sprintf("-iTCP:%d", port), "-sTCP:LISTEN", "-t")
	if err != nil {
		return 0, false
	}
	// Lowest PID is the listener itself rather than a forked child.
	minPID := 0
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		pid, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && pid > 0 && (minPID == 0 || pid < minPID) {
			minPID = pid
		}
	}
	return minPID, minPID > 0
}

var ssPIDPattern = regexp.MustCompile(`pid=(\d+)`)

func ssListener(port int) (int, bool) {
	out, err := commandOutput("ss", "-ltnp")
	if err != nil {
		return 0, false
	}
	suffix := fmt.Sprintf(":%d", port)
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 || !strings.HasSuffix(fields[3], suffix) {
			continue
		}
		if m := ssPIDPattern.FindStringSubmatch(line); m != nil {
			if pid, err := strconv.Atoi(m[1]); err == nil {
				return pid, true
			}
		}
	}
	return 0, false
}

func commandOf(pid int) string {
	out, err := commandOutput("ps", "-o", "comm=,args=", "-p", strconv.Itoa(pid))
	if err != nil {
		return "unknown"
	}
	cmd := strings.TrimSpace(string(out))
	if cmd == "" {
		return "unknown"
	}
	return cmd
}
