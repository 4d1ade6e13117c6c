//go:build unix

package main

import (
	"os"
	"syscall"
)

func shutdownSignals() []os.Signal {
	return []os.Signal{
		os.Interrupt,    // SIGINT
		syscall.SIGTERM, // graceful termination
	}
}
