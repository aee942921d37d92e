package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	sbhttp "github.com/switchboard-hq/switchboard/internal/adapter/http"
	"github.com/switchboard-hq/switchboard/internal/adapter/sqlite"
	"github.com/switchboard-hq/switchboard/internal/adapter/ws"
	"github.com/switchboard-hq/switchboard/internal/config"
	"github.com/switchboard-hq/switchboard/internal/logger"
	"github.com/switchboard-hq/switchboard/internal/middleware"
	"github.com/switchboard-hq/switchboard/internal/service"
	"github.com/switchboard-hq/switchboard/internal/sessions"
)

const version = "0.1.0"

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "mcp":
		err = runMCP()
	case "install":
		err = runInstall()
	case "uninstall":
		err = runUninstall()
	case "hook-register":
		err = runHook(hookRegister)
	case "hook-inbox":
		err = runHook(hookInbox)
	case "hook-mailbox":
		err = runHook(hookMailbox)
	case "version", "--version":
		fmt.Println("switchboard " + version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`switchboard - local coordination broker for coding agents

Usage:
  switchboard [command]

Commands:
  serve          start the broker and dashboard (default)
  mcp            run the MCP stdio proxy for an editor
  install        wire hooks and the MCP server into Claude Code
  uninstall      remove everything install added
  hook-register  SessionStart hook: register this session as an agent
  hook-inbox     PreToolUse/UserPromptSubmit hook: surface pending messages
  hook-mailbox   Stop hook: block completion while messages are waiting
  version        print the version
`)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	noBrowser := fs.Bool("no-browser", false, "do not open the dashboard in a browser")
	configPath := fs.String("config", config.DefaultConfigFile, "path to YAML config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"db", cfg.Store.Path,
		"log_level", cfg.Logging.Level,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() { _ = store.Close() }()
	slog.Info("store ready", "path", cfg.Store.Path)

	hub := ws.NewHub()

	handlers := &sbhttp.Handlers{
		Registry: service.NewRegistryService(store, hub),
		Mailbox:  service.NewMailboxService(store, hub),
		Tasks:    service.NewTaskService(store, hub),
		Context:  service.NewContextService(store),
		Activity: service.NewActivityService(store),
		Sessions: &sessions.Scanner{Dir: sessions.DefaultDir()},
	}

	r := chi.NewRouter()
	r.Use(sbhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(sbhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	sbhttp.MountRoutes(r, handlers, hub)

	addr := "127.0.0.1:" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if !*noBrowser {
		openBrowser("http://" + addr)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting broker", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
