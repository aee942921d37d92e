// Package bootstrap starts a broker in the background when hooks or the
// MCP proxy find none running.
package bootstrap

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/switchboard-hq/switchboard/internal/client"
)

const (
	waitAttempts = 15
	waitInterval = 500 * time.Millisecond
)

// EnsureRunning probes the broker and spawns one if the probe fails.
// It reports whether a broker is reachable afterwards.
func EnsureRunning(ctx context.Context, c *client.Client) bool {
	if c.Healthy(ctx) {
		return true
	}
	return Start(ctx, c)
}

// Start launches this binary's serve command detached from the current
// process and waits for the health endpoint to come up.
func Start(ctx context.Context, c *client.Client) bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}

	cmd := exec.Command(exe, "serve", "--no-browser")
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return false
	}
	// the child outlives us; don't leave a zombie reaper behind
	_ = cmd.Process.Release()

	for i := 0; i < waitAttempts; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(waitInterval):
		}
		if c.Healthy(ctx) {
			return true
		}
	}
	return false
}
