package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ahatch/schwinn-dashboard/internal/api"
	httptransport "github.com/ahatch/schwinn-dashboard/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the workout dashboard web server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := newImportService()

	handler := api.NewHandler(svc, logger, api.Options{
		DATFile:        cfg.DATFile,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address: cfg.HTTPAddress,
	}, api.WithMetrics(api.WithAccessLog(logger, mux)))

	return httptransport.Run(ctx, server, logger, 15*time.Second)
}
