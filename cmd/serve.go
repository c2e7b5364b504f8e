package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/devscripts/internal/dispatch"
	"github.com/zjrosen/devscripts/internal/flags"
	"github.com/zjrosen/devscripts/internal/log"
	"github.com/zjrosen/devscripts/internal/luascript"
	"github.com/zjrosen/devscripts/internal/script"
	"github.com/zjrosen/devscripts/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the script dispatch endpoint",
	Long: `Host the dispatch endpoint that runs scripts on request.

Scripts are Lua files discovered from scripts.dir on every request, so they
can be added or edited while the server runs. The endpoint is only mounted
under the dev profile; other profiles serve /health alone.

Example:
  devscripts serve                         # localhost:8080/scripts
  devscripts serve --addr :9090 --dir ops/scripts`,
	RunE: runServe,
}

var (
	serveAddr string
	serveDir  string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address to listen on (overrides http.host and http.port)")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "Lua script directory (overrides scripts.dir)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cleanupLog, err := setupLogging(true)
	if err != nil {
		return err
	}
	defer cleanupLog()

	provider, flush, err := setupTracing()
	if err != nil {
		return err
	}
	defer flush()

	dir := serveDir
	if dir == "" {
		dir = cfg.Scripts.Dir
	}
	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTP.Addr()
	}

	scripts := luascript.NewProvider(dir)
	d := newDispatcher(scripts, provider.Tracer())

	checkScripts(cmd.Context(), scripts)
	stopWatch := watchScripts(cmd.Context(), scripts, dir)
	defer stopWatch()

	if !cfg.IsDev() {
		log.Warn(log.CatConfig, "Dispatch endpoint disabled outside the dev profile", "profile", cfg.Profile)
	}

	server, err := dispatch.NewServer(dispatch.ServerConfig{
		Addr:            addr,
		Dispatcher:      d,
		BasePath:        cfg.Scripts.Path,
		DispatchEnabled: cfg.IsDev(),
	})
	if err != nil {
		return fmt.Errorf("creating dispatch server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "devscripts serving %s on port %d (scripts from %s)\n", cfg.Scripts.Path, server.Port(), dir)
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	select {
	case sig := <-sigCh:
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
	case <-cmd.Context().Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.ErrorErr(log.CatHTTP, "Error stopping dispatch server", err)
	}

	fmt.Fprintln(out, "Server stopped")
	return nil
}

func newDispatcher(p script.Provider, tracer trace.Tracer) *dispatch.Dispatcher {
	prefixes := append(script.DefaultAppPackages(), cfg.Scripts.AppPackages...)
	return dispatch.New(dispatch.Config{
		Provider: p,
		Filter:   script.NewFrameFilter(prefixes...),
		Flags:    flags.New(cfg.Flags),
		Tracer:   tracer,
	})
}

// checkScripts discovers and resolves scripts once so misconfiguration such
// as a name collision shows up in the log before anyone dispatches.
func checkScripts(ctx context.Context, p script.Provider) {
	discovered, err := script.Discover(ctx, p)
	if err != nil {
		log.ErrorErr(log.CatScript, "Script discovery failed", err)
		return
	}
	registry, err := script.Resolve(discovered)
	if err != nil {
		log.ErrorErr(log.CatScript, "Scripts cannot be dispatched", err)
		return
	}
	log.Info(log.CatScript, "Scripts available", "count", registry.Len(), "names", registry.Names())
}

// watchScripts re-runs checkScripts whenever the script directory changes.
// A missing directory is not watched.
func watchScripts(ctx context.Context, p script.Provider, dir string) func() {
	w, err := watcher.New(watcher.DefaultConfig(dir))
	if err != nil {
		log.ErrorErr(log.CatScript, "Failed to create script watcher", err)
		return func() {}
	}
	onChange, err := w.Start()
	if err != nil {
		log.Debug(log.CatScript, "Script directory not watched", "dir", dir, "error", err)
		_ = w.Stop()
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-onChange:
				log.Debug(log.CatScript, "Script directory changed", "dir", dir)
				checkScripts(ctx, p)
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		_ = w.Stop()
	}
}
