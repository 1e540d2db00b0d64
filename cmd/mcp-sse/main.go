// mcp-sse serves the tool set over HTTP:
// SSE sessions on /sse and /messages, and stateless JSON-RPC on /mcp.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpweather/config"
	"github.com/effective-security/mcpweather/internal/cli"
	"github.com/effective-security/mcpweather/mcp"
	"github.com/effective-security/mcpweather/mcp/transport"
	"github.com/effective-security/mcpweather/mcp/transport/httptransport"
	"github.com/effective-security/mcpweather/mcp/transport/sse"
	"github.com/effective-security/mcpweather/toolset"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather", "mcp-sse")

// Endpoints
const (
	PathSSE      = "/sse"
	PathMessages = "/messages"
	PathMCP      = "/mcp"
)

const shutdownTimeout = 5 * time.Second

func main() {
	flags := &cli.Flags{}
	var listen string

	root := &cobra.Command{
		Use:          "mcp-sse",
		Short:        "MCP server of calculator or weather tools over SSE and HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Server.Listen = listen
			}
			return run(cfg)
		},
	}
	flags.Register(root)
	root.Flags().StringVar(&listen, "listen", config.DefaultListen, "address to listen on")
	root.AddCommand(cli.Commands(flags)...)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	set, err := toolset.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer set.Close()

	mux, session, err := newMux(ctx, cfg, set)
	if err != nil {
		logger.KV(xlog.ERROR, "reason", "serve", "err", err.Error())
		return err
	}
	defer session.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.KV(xlog.NOTICE, "status", "listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.KV(xlog.ERROR, "reason", "listen", "err", err.Error())
		return err
	case <-ctx.Done():
	}

	logger.KV(xlog.INFO, "status", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.KV(xlog.ERROR, "reason", "shutdown", "err", err.Error())
		return err
	}
	return nil
}

// newMux returns the routes, and the session of the stateless HTTP transport
func newMux(ctx context.Context, cfg *config.Config, set *toolset.Set) (*http.ServeMux, *mcp.Session, error) {
	httpTr := httptransport.NewHTTPTransport()
	session, err := mcp.NewServer(httpTr, set.Registry, set.ServerOptions(cfg, "http")...).Serve(ctx)
	if err != nil {
		return nil, nil, err
	}

	// one server per SSE connection
	sseHandler := sse.NewHandler(PathMessages, func(ctx context.Context, tr transport.Transport) error {
		session, err := mcp.NewServer(tr, set.Registry, set.ServerOptions(cfg, "sse")...).Serve(ctx)
		if err != nil {
			return err
		}
		return session.Wait()
	})

	mux := http.NewServeMux()
	mux.HandleFunc(PathSSE, sseHandler.ServeSSE)
	mux.HandleFunc(PathMessages, sseHandler.ServeMessages)
	mux.Handle(PathMCP, httpTr)
	return mux, session, nil
}
