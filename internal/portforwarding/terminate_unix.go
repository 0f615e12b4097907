//go:build !windows

package portforwarding

import "golang.org/x/sys/unix"

func terminateProcess(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}
