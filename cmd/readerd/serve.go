package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lexio/readerd/internal/api"
	"github.com/lexio/readerd/internal/config"
	"github.com/lexio/readerd/internal/prefs"
	"github.com/lexio/readerd/internal/remote"
	"github.com/lexio/readerd/internal/storage"
	"github.com/lexio/readerd/internal/syncer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the readerd daemon (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running readerd daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show readerd status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "readerd.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "readerd version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure the local API bearer token exists.
	token, err := config.LocalAPIToken()
	if err != nil {
		return fmt.Errorf("initializing local API token: %w", err)
	}

	// Write PID file. Check if the daemon is already running via the health
	// endpoint first.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("readerd is already running (PID %d)", pid)
			return fmt.Errorf("daemon already running (PID %d)", pid)
		}
		printWarning("readerd is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("daemon already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the local snapshot/journal store.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Populate preferences from the account service. Every failure path
	// degrades to defaults; serving starts regardless.
	remoteClient := remote.New(cfg.Remote.BaseURL, cfg.Remote.APIToken)
	prefStore := prefs.NewStoreWithJournal(remoteClient, store)
	prefStore.Initialize(ctx)
	slog.Info("preferences initialized",
		"authenticated", prefStore.Authenticated(),
		"bodyFont", prefStore.Current().BodyFont,
	)

	sync := syncer.New(prefStore, cfg.SyncCooldown())

	handler := api.NewHandler(api.Deps{
		Prefs:  prefStore,
		Events: store,
		Sync:   sync,
		Token:  token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server on stdio, for assistant integrations.
	stdioSrv := server.NewStdioServer(api.NewMCPServer(api.MCPDeps{
		Prefs:  prefStore,
		Events: store,
	}))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "readerd listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sync.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")

		// Let in-flight optimistic writes settle before the server goes away.
		prefStore.Flush()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("readerd is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop readerd (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to readerd (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Daemon", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Daemon", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Daemon", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Account service", "%s", cfg.Remote.BaseURL)
	printStatus("Sync cooldown", "%s", cfg.SyncCooldown())

	if running {
		if api, err := newAPIClient(); err == nil {
			ctx := context.Background()

			var status struct {
				Authenticated bool `json:"authenticated"`
			}
			if resp, err := api.get(ctx, "/v1/auth/status"); err == nil {
				if decodeJSON(resp, &status) == nil {
					printStatus("Session", "%s", sessionLabel(status.Authenticated))
				}
			}

			var p struct {
				BionicReading bool   `json:"bionicReading"`
				BodyFont      string `json:"bodyFont"`
				Ready         bool   `json:"ready"`
			}
			if resp, err := api.get(ctx, "/v1/preferences"); err == nil {
				if decodeJSON(resp, &p) == nil {
					printStatus("Bionic reading", "%t", p.BionicReading)
					printStatus("Body font", "%s", p.BodyFont)
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func sessionLabel(authenticated bool) string {
	if authenticated {
		return "authenticated"
	}
	return "unauthenticated (defaults)"
}
