// Command socks5d runs a standalone SOCKS5 proxy server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/postalsys/socks5d/internal/config"
	"github.com/postalsys/socks5d/internal/logging"
	"github.com/postalsys/socks5d/internal/socks5"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "socks5d",
		Short:   "A standalone SOCKS5 proxy server",
		Long:    "socks5d implements RFC 1928 SOCKS5 method negotiation, RFC 1929 username/password sub-negotiation, and the CONNECT command over TCP.",
		Version: Version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(hashCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the proxy server",
		Long:  "Load a configuration file and run the proxy until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

			engineCfg, err := cfg.ToEngineConfig()
			if err != nil {
				return fmt.Errorf("build engine config: %w", err)
			}

			srv, err := socks5.Bind(cfg.Listen)
			if err != nil {
				return fmt.Errorf("bind: %w", err)
			}
			srv.SetConfig(engineCfg)
			srv.SetLogger(log)

			registry := prometheus.NewRegistry()
			metrics := socks5.NewMetrics(registry)
			srv.SetMetrics(metrics)

			var metricsSrv *http.Server
			if cfg.Metrics.Enabled {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
				metricsSrv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
				go func() {
					if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.Error("metrics server failed", "err", err)
					}
				}()
				log.Info("metrics listening", "addr", cfg.Metrics.Listen)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			log.Info("socks5d listening", "addr", srv.Addr().String())

			go acceptLoop(ctx, srv, log)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			log.Info("received signal, shutting down", "signal", sig.String())

			cancel()
			if err := srv.Close(); err != nil {
				log.Warn("error closing listener", "err", err)
			}
			if metricsSrv != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				metricsSrv.Shutdown(shutdownCtx)
			}

			log.Info("socks5d stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./socks5d.yaml", "path to configuration file")

	return cmd
}

// acceptLoop drives every accepted connection to completion on its own
// goroutine, logging the outcome the way the source this was ported from
// spawns one task per accepted Socks5Socket.
func acceptLoop(ctx context.Context, srv *socks5.Server, log interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}) {
	for conn := range srv.Incoming(ctx) {
		go func(c *socks5.Connection) {
			defer c.Close()
			remote := c.RemoteAddr()
			if err := c.Run(ctx); err != nil {
				log.Debug("connection finished with error", "remote", remote, "err", err)
				return
			}
			log.Debug("connection finished", "remote", remote)
		}(conn)
	}
}

func hashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash suitable for socks5.auth.users in bcrypt mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := socks5.HashPassword(args[0])
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Println(hash)
			return nil
		},
	}
	return cmd
}
