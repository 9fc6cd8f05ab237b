package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"canadiantracker/internal/config"
	"canadiantracker/internal/webapi"
	"canadiantracker/lib/serviceutil"
	"canadiantracker/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	debug  bool
	dbPath string
	host   string
	port   int
)

var rootCmd = &cobra.Command{
	Use:   "ctserver",
	Short: "ctserver serves what ctscraper collected as a JSON API.",
}

var serveCmd = &cobra.Command{
	Use:   "serve [--host HOST] [--port PORT]",
	Short: "Serve the JSON API.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		telemetry.InitSlog(debug)
		err := telemetry.SetupFromEnv(ctx, "ctserver")
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}
		defer telemetry.Shutdown(context.WithoutCancel(ctx))

		cfg, err := config.Load()
		if err != nil {
			serviceutil.Fatal("read config", err)
		}
		if dbPath != "" {
			cfg.Database.File = dbPath
			cfg.Database.Url = ""
		}
		if host != "" {
			cfg.Server.Host = host
		}
		if port > 0 {
			cfg.Server.Port = port
		}

		database, s, err := cfg.OpenStore(ctx)
		if err != nil {
			serviceutil.Fatal("open store", err)
		}
		defer database.Close()

		telemetry.InstrumentPerfStats(ctx)

		// the server serializes its requests, s is never used concurrently
		server := webapi.NewServer(s)
		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
		err = serviceutil.StartHttpServer(ctx, addr, server.Handler(cfg.Server.AccessToken))
		if err != nil {
			serviceutil.Fatal("serve", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Set logging level to DEBUG.")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "Path to the sqlite database (overrides the config file).")
	serveCmd.Flags().StringVar(&host, "host", "", "Address to listen on (default from the config file, 127.0.0.1).")
	serveCmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from the config file, 8000).")
	rootCmd.AddCommand(serveCmd)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
