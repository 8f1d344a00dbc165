//go:build linux

package main

import "golang.org/x/sys/unix"

// raiseMemlock lifts the locked memory limit so the eBPF tracer can load.
func raiseMemlock() error {
	return unix.Setrlimit(unix.RLIMIT_MEMLOCK, &unix.Rlimit{
		Cur: unix.RLIM_INFINITY,
		Max: unix.RLIM_INFINITY,
	})
}
