//go:build windows

package mcp

import "os"

// shutdownSignals stop long-running commands gracefully. Windows has no SIGTERM.
var shutdownSignals = []os.Signal{os.Interrupt}
