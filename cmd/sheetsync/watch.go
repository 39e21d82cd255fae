package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tablekit/sheetsync/internal/coordinator"
	"github.com/tablekit/sheetsync/internal/history"
	"github.com/tablekit/sheetsync/internal/monitor"
	"github.com/tablekit/sheetsync/internal/ui"
)

var (
	watchListen  string
	watchLogFile string
	watchNoFirst bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync automatically whenever the source file changes",
	Long: `Watch the source spreadsheet and sync on every change until interrupted.

Two triggers feed the sync: filesystem notifications on the source file
and a periodic fingerprint poll that covers filesystems where
notifications are unreliable. Overlapping triggers are serialized; bursts
of events for a single edit collapse into one sync.

With --listen, sync lifecycle events are also broadcast to WebSocket
clients on the given address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.SourcePath == "" || cfg.TargetPath == "" {
			return fmt.Errorf("no spreadsheets configured; run \"sheetsync init\" first")
		}

		logFile := cfg.LogFile
		if watchLogFile != "" {
			logFile = watchLogFile
		}
		logOut := io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    5, // megabytes
			MaxBackups: 3,
		})
		logger := log.New(logOut, "[sheetsync] ", log.LstdFlags)

		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()

		coordCfg := &coordinator.Config{
			Cooldown:     cfg.Cooldown,
			Debounce:     cfg.Debounce,
			PollInterval: cfg.PollInterval,
			Logger:       logger,
			Recorder:     store,
		}

		listen := cfg.ListenAddr
		if watchListen != "" {
			listen = watchListen
		}
		if listen != "" {
			server := monitor.NewServer(&monitor.Config{Addr: listen, Logger: logger})
			if err := server.Start(); err != nil {
				return err
			}
			defer func() {
				if err := server.Stop(); err != nil {
					logger.Printf("Error stopping monitor server: %v", err)
				}
			}()
			coordCfg.Events = monitor.NewHandler(server, logger)
		}

		coord := coordinator.New(coordCfg)
		if err := coord.SetPaths(cfg.SourcePath, cfg.TargetPath); err != nil {
			return err
		}

		// Catch up before watching, so a change made while the daemon
		// was down is not missed.
		if !watchNoFirst {
			if _, err := coord.SyncOnce(); err != nil {
				logger.Printf("Initial sync failed: %v", err)
			}
		}

		if err := coord.SetAutoSync(true); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		logger.Println("Shutdown signal received")
		if err := coord.Stop(); err != nil {
			return err
		}

		if entries := coord.Activity(); len(entries) > 0 {
			fmt.Println(ui.Heading("Recent activity"))
			fmt.Println(ui.LogLines(entries))
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchListen, "listen", "", "broadcast sync events to WebSocket clients on this address (e.g. :8080)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "activity log file (rotated; default from config)")
	watchCmd.Flags().BoolVar(&watchNoFirst, "no-initial-sync", false, "do not sync once before watching")
}
