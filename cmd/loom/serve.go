package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomengine/loom/internal/cli"
	"github.com/loomengine/loom/internal/logging"
	"github.com/loomengine/loom/internal/server"
	"github.com/loomengine/loom/internal/server/redisstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the loom persistence service",
	Long:  `Starts the reference persistence service: the REST API editors talk to, plus the per-workflow websocket change feeds. Storage is in-memory unless a redis address is configured.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")
		verbose, _ := cmd.Flags().GetBool("verbose")

		logger := logging.New(slog.LevelInfo)
		if verbose {
			logger = logging.New(slog.LevelDebug)
		}

		cfg := server.DefaultConfig()
		if configPath != "" {
			var err error
			cfg, err = server.LoadConfig(configPath)
			if err != nil {
				fmt.Printf("Error loading config: %v\n", err)
				os.Exit(1)
			}
		}
		if addr != "" {
			cfg.Addr = addr
		}

		var store server.WorkflowStore
		if cfg.Redis.Addr != "" {
			rs := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			defer rs.Close()
			store = rs
			logger.Info("using redis store", "addr", cfg.Redis.Addr)
		} else {
			store = server.NewMemStore()
			logger.Info("using in-memory store")
		}

		for _, id := range cfg.Workflows {
			if err := store.EnsureWorkflow(context.Background(), id); err != nil {
				fmt.Printf("Error creating workflow %q: %v\n", id, err)
				os.Exit(1)
			}
		}

		svc := server.New(store, cfg.CatalogOrDefault(), server.WithLogger(logger))
		srv := &http.Server{
			Addr:    cfg.Addr,
			Handler: svc.Handler(),
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting Loom Service on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case <-sigCtx.Done():
			fmt.Printf("\nStart shutdown... Signal: %v\n", sigCtx.Signal())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Loom Service stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to a YAML config file")
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")
}
