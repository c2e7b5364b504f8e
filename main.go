// Package main is the entry point for the devscripts CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/zjrosen/devscripts/cmd"
)

// Build information injected via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type exitCoder interface {
	ExitCode() int
}

func main() {
	versionString := fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	cmd.SetVersion(versionString)
	if err := cmd.Execute(); err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		}
		code := 1
		if ec, ok := err.(exitCoder); ok && ec.ExitCode() != 0 {
			code = ec.ExitCode()
		}
		os.Exit(code)
	}
}
