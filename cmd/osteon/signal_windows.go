//go:build windows

package main

import "os"

// shutdownSignals stop long-running commands gracefully. Windows has no SIGTERM.
var shutdownSignals = []os.Signal{os.Interrupt}
