// Command siotail connects to a Socket.IO server and tails events to
// stdout. It is a development tool for poking at servers and watching
// traffic.
//
//	siotail --url http://localhost:3000 --event news --event chat
//	siotail --url http://localhost:3000 --emit ping
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	sio "github.com/ramory-l/sioclient"
)

func main() {
	var (
		url         string
		events      []string
		emit        string
		tick        time.Duration
		metricsAddr string
		verbose     bool
	)

	rootCmd := &cobra.Command{
		Use:   "siotail",
		Short: "Tail events from a Socket.IO server",
		Long: `Siotail connects to a Socket.IO v2 server over WebSocket,
subscribes to the named events, and prints each one as it arrives.
It keeps reconnecting until interrupted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(url, events, emit, tick, metricsAddr, verbose)
		},
	}

	rootCmd.Flags().StringVar(&url, "url", "http://localhost:3000", "server address")
	rootCmd.Flags().StringArrayVar(&events, "event", nil, "event name to subscribe to (repeatable)")
	rootCmd.Flags().StringVar(&emit, "emit", "", "emit this event once connected, with an ack")
	rootCmd.Flags().DurationVar(&tick, "tick", 50*time.Millisecond, "drain interval")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(url string, events []string, emit string, tick time.Duration, metricsAddr string, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := &sio.Config{
		URL:    url,
		Logger: logger,
	}

	if metricsAddr != "" {
		registry := prometheus.NewRegistry()
		cfg.Metrics = registry
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	client, err := sio.New(cfg)
	if err != nil {
		return err
	}

	for _, name := range events {
		name := name
		client.On(name, func(args ...interface{}) {
			fmt.Printf("[%s] %s %v\n", time.Now().Format(time.TimeOnly), name, args)
		})
	}

	client.On(sio.EventConnect, func(args ...interface{}) {
		logger.Info("connected", "sid", client.Sid())
		if emit != "" {
			client.EmitWithAck(emit, func(args ...interface{}) {
				fmt.Printf("[%s] ack(%s) %v\n", time.Now().Format(time.TimeOnly), emit, args)
			})
		}
	})
	client.On(sio.EventDisconnect, func(args ...interface{}) {
		logger.Warn("disconnected")
	})

	client.Connect()
	defer client.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			client.Drain()
		case <-stop:
			client.Drain()
			return nil
		}
	}
}
