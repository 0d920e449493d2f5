//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop long-running commands gracefully.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
