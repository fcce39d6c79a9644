package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/theirongolddev/runledger/internal/cli"
	"github.com/theirongolddev/runledger/internal/config"
	"github.com/theirongolddev/runledger/internal/daemon"
	"github.com/theirongolddev/runledger/internal/observe"

	"github.com/spf13/cobra"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonWatch        bool
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Watch the game folders and serve pending runs over HTTP/SSE",
	Long: "Re-analyze the registered folders on an interval and whenever their chat\n" +
		"logs change. The pending set, events and metrics are served over HTTP.",
	PersistentPreRunE: setupDaemon,
	RunE:              runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	daemonCmd.PersistentFlags().DurationVar(&flagDaemonInterval, "interval", 0, "Polling interval (default from config)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", "", "PID file path (default in the data dir)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", "", "Log file path for detached mode (default in the data dir)")
	daemonCmd.PersistentFlags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Max in-memory events retained")

	daemonCmd.Flags().BoolVar(&flagDaemonWatch, "watch", false, "Also re-analyze on chat log changes (default from config)")
	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// setupDaemon runs the root setup, then fills unset daemon flags from the
// config.
func setupDaemon(cmd *cobra.Command, args []string) error {
	if err := setupRuntime(cmd, args); err != nil {
		return err
	}
	if flagDaemonAddr == "" {
		flagDaemonAddr = cfg.Daemon.Addr
	}
	if flagDaemonInterval == 0 {
		d, err := cfg.PollInterval()
		if err != nil {
			return err
		}
		flagDaemonInterval = d
	}
	if f := cmd.Flags().Lookup("watch"); f != nil && !f.Changed {
		flagDaemonWatch = cfg.Daemon.Watch
	}
	if flagDaemonPIDFile == "" {
		flagDaemonPIDFile = filepath.Join(config.DataDir(cfg), "runledgerd.pid")
	}
	if flagDaemonLogFile == "" {
		flagDaemonLogFile = filepath.Join(config.DataDir(cfg), "runledgerd.log")
	}
	return nil
}

func runDaemon(_ *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}

	if flagDaemonDetach {
		return startDaemonDetached()
	}

	return runDaemonForeground()
}

func startDaemonDetached() error {
	if pid, err := daemon.Pidfile(flagDaemonPIDFile).Live(); err == nil {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	} else if !errors.Is(err, daemon.ErrNotRunning) {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	cmd := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagDaemonPIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", flagDaemonAddr)
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func runDaemonForeground() error {
	pidfile := daemon.Pidfile(flagDaemonPIDFile)
	if err := pidfile.Claim(daemon.RuntimeState{
		PID:       os.Getpid(),
		Addr:      flagDaemonAddr,
		StartedAt: time.Now(),
		DBPath:    dbPath(),
	}); err != nil {
		return err
	}
	defer pidfile.Release()

	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	prov, err := observe.InitProvider(version)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = prov.Shutdown(ctx)
	}()
	metrics, err := observe.NewMetrics(prov.MeterProvider())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	popts, err := pipelineOptions(s)
	if err != nil {
		return err
	}
	popts.Metrics = metrics

	svc := daemon.New(daemon.Config{
		Addr:           flagDaemonAddr,
		Interval:       flagDaemonInterval,
		Watch:          flagDaemonWatch,
		EventsBuffer:   flagDaemonEventsBuffer,
		Folders:        s,
		Pipeline:       popts,
		MetricsHandler: prov.Handler(),
		Logger:         logger,
	})

	fmt.Printf("  runledger daemon listening on http://%s\n", flagDaemonAddr)
	fmt.Printf("  Polling every %s", flagDaemonInterval)
	if flagDaemonWatch {
		fmt.Print(", watching chat logs")
	}
	fmt.Println()
	fmt.Printf("  Stop with: runledger daemon stop --pid-file %s\n", flagDaemonPIDFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	pidfile := daemon.Pidfile(flagDaemonPIDFile)
	pid, err := pidfile.Live()
	switch {
	case errors.Is(err, daemon.ErrNotRunning) && pid > 0:
		fmt.Printf("  Daemon: stale pid file removed (pid %d not alive)\n", pid)
		return nil
	case errors.Is(err, daemon.ErrNotRunning):
		fmt.Printf("  Daemon: not running\n")
		return nil
	case err != nil:
		return err
	}

	addr := flagDaemonAddr
	if st, err := pidfile.State(); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	if st.LastPollAt.IsZero() {
		fmt.Printf("  Last poll: pending\n")
	} else {
		fmt.Printf("  Last poll: %s\n", st.LastPollAt.In(loc).Format(time.RFC3339))
	}
	fmt.Printf("  Poll count: %d (every %ds)\n", st.PollCount, st.PollIntervalSec)
	fmt.Printf("  Watching: %v\n", st.Watching)
	fmt.Printf("  Folders: %d\n", len(st.Folders))
	fmt.Printf("  Files: %d (%d empty, %d skipped, %d failed)\n",
		st.Summary.Files, st.Summary.Empty, st.Summary.Skipped, st.Summary.Failed)
	fmt.Printf("  Pending runs: %d (%s personal)\n", st.Summary.Pending, cli.FormatGold(st.Summary.PendingPersonal))
	fmt.Printf("  Subscribers: %d\n", st.SubscriberCount)
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pid, err := daemon.Pidfile(flagDaemonPIDFile).Stop(8 * time.Second)
	if err != nil {
		return err
	}
	fmt.Printf("  Stopped daemon (pid %d)\n", pid)
	return nil
}

// filterDetachArg drops --detach so the child runs in the foreground.
func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}
