//go:build linux

package driver

import "golang.org/x/sys/unix"

// setThreadNice sets the niceness of the calling OS thread. Linux applies
// PRIO_PROCESS to a single thread when given a thread id.
func setThreadNice(nice int) error {
	if nice == 0 {
		return nil
	}
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), nice)
}
