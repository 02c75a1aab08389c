package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/AndrewLester/truetime/internal/config"
	"github.com/AndrewLester/truetime/internal/logging"
	"github.com/AndrewLester/truetime/internal/rpc"
	"github.com/AndrewLester/truetime/internal/store"
	"github.com/AndrewLester/truetime/pkg/listener"
	"github.com/AndrewLester/truetime/pkg/truetime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const daemonName = "truetimed"

type daemonFlags struct {
	noDaemon bool
	pidFile  string
}

var daemonOpts daemonFlags

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Keep true time in sync in the background",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := killDaemon(); err != nil {
			return err
		}
		fmt.Println("Successfully stopped truetime daemon.")
		return nil
	},
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonOpts.noDaemon, "no-daemon", false, "Run in the foreground.")
	daemonCmd.Flags().String("store", config.DefaultStorePath, "Path of the anchor file.")
	daemonCmd.Flags().String("metrics", "", "Serve prometheus metrics on this address.")
	daemonCmd.Flags().Int64("interval", 0, "Sync interval in milliseconds.")
	rootCmd.PersistentFlags().StringVar(&daemonOpts.pidFile, "pid-file", fmt.Sprintf("/var/run/%s.pid", daemonName), "Daemon PID file.")
	rootCmd.AddCommand(daemonCmd, stopCmd)
}

func daemonContext(logFile string) *daemon.Context {
	return &daemon.Context{
		PidFileName: daemonOpts.pidFile,
		PidFilePerm: 0644,
		LogFileName: logFile,
		LogFilePerm: 0640,
		WorkDir:     "./",
		Umask:       027,
		Args:        append([]string{daemonName}, os.Args[1:]...),
	}
}

func killDaemon() error {
	d, err := daemonContext("").Search()
	if err != nil {
		return fmt.Errorf("could not find truetime daemon: %w", err)
	}
	if err := syscall.Kill(d.Pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("could not stop truetime daemon: %w", err)
	}
	return nil
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	loader, cfg, err := loadConfig(cmd, map[string]string{
		"store":    "store_path",
		"metrics":  "metrics_addr",
		"interval": "sync_interval_ms",
	})
	if err != nil {
		return err
	}

	if !daemonOpts.noDaemon {
		// With a rotated log file of our own, stderr is not kept.
		stderrLog := fmt.Sprintf("/var/log/%s.log", daemonName)
		if cfg.LogFile != "" {
			stderrLog = ""
		}
		dctx := daemonContext(stderrLog)
		d, err := dctx.Reborn()
		if err != nil {
			if errors.Is(err, daemon.ErrWouldBlock) {
				return errors.New("truetime daemon is already running")
			}
			return fmt.Errorf("unable to run: %w", err)
		}
		if d != nil {
			fmt.Printf("Daemon process (%s, %d) started successfully.\n", daemonName, d.Pid)
			return nil
		}
		defer dctx.Release()
	}

	logger, err := logging.New(logging.Options{Verbose: true, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("daemon started", zap.Strings("args", os.Args), zap.Int("pid", os.Getpid()))

	return serveDaemon(cmd.Context(), loader, cfg, logger)
}

func serveDaemon(ctx context.Context, loader *config.Loader, cfg config.Config, logger *zap.Logger) error {
	tracker := rpc.NewTracker()
	listeners := listener.Multi{listener.NewLogger(logger), tracker}
	if cfg.MetricsAddr != "" {
		metrics, err := listener.NewMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		listeners = append(listeners, metrics)
	}

	tt := truetime.New(
		truetime.WithListener(listeners),
		truetime.WithResolver(cfg.Resolver()),
		truetime.WithStore(store.NewFile(cfg.StorePath)),
	)
	if anchor, ok := tt.Anchor(); ok {
		logger.Info("restored anchor", zap.Time("wall", anchor.Wall), zap.String("store", cfg.StorePath))
	}

	handle, err := tt.Sync(ctx, cfg.Parameters())
	if err != nil {
		return err
	}
	var current atomic.Pointer[truetime.SyncHandle]
	current.Store(handle)

	// A changed config file restarts the loop with the new parameters.
	loader.Watch(func(next config.Config, err error) {
		if err != nil {
			logger.Warn("config reload rejected", zap.Error(err))
			return
		}
		handle, err := tt.Sync(ctx, next.Parameters())
		if err != nil {
			logger.Warn("config reload rejected", zap.Error(err))
			return
		}
		current.Swap(handle).Cancel()
		logger.Info("config reloaded", zap.Strings("host_pool", next.HostPool))
	})

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := rpc.Listen(ctx, cfg.RPCSocket, &rpc.StatusServer{
			Time:    tt,
			Tracker: tracker,
			State:   func() truetime.State { return current.Load().State() },
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.MetricsAddr != "" {
		group.Go(func() error {
			return serveMetrics(ctx, cfg.MetricsAddr, logger)
		})
	}
	group.Go(func() error {
		<-ctx.Done()
		current.Load().Cancel()
		<-current.Load().Done()
		return nil
	})

	err = group.Wait()
	logger.Info("daemon stopped")
	return err
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(logger.Named("metrics")),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
