package cli

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kilupskalvis/cocokit/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveListen   string
	serveImageDir string
	serveToken    string
	serveRate     int
	serveTLSCert  string
	serveTLSKey   string
)

var serveCmd = &cobra.Command{
	Use:   "serve <annotation.json>",
	Short: "Serve a dataset over a read-only HTTP API",
	Long: `Serve one annotation file over HTTP: dataset info, categories, images,
their annotations, rendered masks and image files, plus the project's run log.

The bearer token is read from --token or the COCOKIT_TOKEN environment
variable. Without one the API is open.

Examples:
  cocokit serve annotation.json
  cocokit serve annotation.json --listen 0.0.0.0:8720 --token secret`,
	Args: cobra.ExactArgs(1),
	Run:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveListen, "listen", "", "Listen address host:port (default: project server_addr)")
	f.StringVar(&serveImageDir, "image-dir", "", "Directory relative image names resolve against")
	f.StringVar(&serveToken, "token", os.Getenv("COCOKIT_TOKEN"), "Bearer token required by /api endpoints")
	f.IntVar(&serveRate, "rate", server.DefaultServerConfig().RequestsPerMinute, "Requests per minute per client, 0 disables")
	f.StringVar(&serveTLSCert, "tls-cert", "", "TLS certificate file")
	f.StringVar(&serveTLSKey, "tls-key", "", "TLS key file")
}

func runServe(_ *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()
	logger := slog.Default()

	ds := c.loadDataset(args[0], serveImageDir)
	listen := outputOr(serveListen, c.Config.ServerAddr)

	cfg := server.DefaultServerConfig()
	cfg.Token = serveToken
	cfg.RequestsPerMinute = serveRate

	var runs server.RunLog
	if c.Store != nil {
		runs = c.Store
	}

	h := server.Handler(ds, c.Images, runs, cfg, logger)

	srv := &http.Server{
		Addr:              listen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return context.Background() },
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting cocokit server", "listen", listen, "dataset", args[0],
			"images", len(ds.Images), "auth", cfg.Token != "")
		var err error
		if serveTLSCert != "" && serveTLSKey != "" {
			err = srv.ListenAndServeTLS(serveTLSCert, serveTLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
