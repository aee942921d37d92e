package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/switchboard-hq/switchboard/internal/adapter/mcp"
	"github.com/switchboard-hq/switchboard/internal/bootstrap"
	"github.com/switchboard-hq/switchboard/internal/client"
	"github.com/switchboard-hq/switchboard/internal/config"
	"github.com/switchboard-hq/switchboard/internal/hook"
	"github.com/switchboard-hq/switchboard/internal/install"
)

// runMCP makes sure a broker is reachable, then proxies MCP stdio traffic to
// it. Every editor gets its own proxy process; they all share the one broker.
func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c := client.New(cfg.Hooks.BrokerURL)
	if !bootstrap.EnsureRunning(context.Background(), c) {
		return fmt.Errorf("broker at %s did not come up", c.BaseURL())
	}

	srv := mcp.NewServer(
		mcp.ServerConfig{Name: "switchboard", Version: version},
		mcp.ServerDeps{Broker: c},
	)
	return srv.ServeStdio()
}

func runInstall() error {
	inst, err := install.NewInstaller()
	if err != nil {
		return err
	}
	if err := inst.Install(); err != nil {
		return err
	}
	fmt.Println("switchboard hooks and MCP server installed")
	fmt.Println("restart Claude Code to pick up the new configuration")
	return nil
}

func runUninstall() error {
	inst, err := install.NewInstaller()
	if err != nil {
		return err
	}
	if err := inst.Uninstall(); err != nil {
		return err
	}
	fmt.Println("switchboard hooks and MCP server removed")
	return nil
}

type hookKind int

const (
	hookRegister hookKind = iota
	hookInbox
	hookMailbox
)

// runHook executes one hook invocation: JSON in on stdin, JSON out on stdout.
// Hooks never fail the editor, so broker trouble surfaces as silence.
func runHook(kind hookKind) error {
	cfg, err := config.Load()
	if err != nil {
		return nil
	}

	c := client.New(cfg.Hooks.BrokerURL)
	r := &hook.Runner{
		Client:       c,
		Cooldown:     cfg.Hooks.Cooldown,
		EnsureBroker: func(ctx context.Context) bool { return bootstrap.EnsureRunning(ctx, c) },
	}

	ctx := context.Background()
	switch kind {
	case hookRegister:
		return r.Register(ctx, os.Stdin, os.Stdout)
	case hookInbox:
		return r.Inbox(ctx, os.Stdin, os.Stdout)
	case hookMailbox:
		return r.Stop(ctx, os.Stdin, os.Stdout)
	}
	return nil
}

// openBrowser points the default browser at the dashboard. Best effort.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
