// mcp-stdio serves the tool set over newline-delimited JSON-RPC on stdin and stdout.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/effective-security/mcpweather/internal/cli"
	"github.com/effective-security/mcpweather/mcp"
	"github.com/effective-security/mcpweather/mcp/transport/stdio"
	"github.com/effective-security/mcpweather/toolset"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpweather", "mcp-stdio")

func main() {
	flags := &cli.Flags{}
	root := &cobra.Command{
		Use:          "mcp-stdio",
		Short:        "MCP server of calculator or weather tools over stdio",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(flags)
		},
	}
	flags.Register(root)
	root.AddCommand(cli.Commands(flags)...)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(flags *cli.Flags) error {
	cfg, err := flags.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	set, err := toolset.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer set.Close()

	// stdout carries the protocol, logs go to stderr
	tr := stdio.New(os.Stdin, os.Stdout)
	server := mcp.NewServer(tr, set.Registry, set.ServerOptions(cfg, "stdio")...)

	session, err := server.Serve(ctx)
	if err != nil {
		logger.KV(xlog.ERROR, "reason", "serve", "err", err.Error())
		return err
	}

	err = session.Wait()
	if err != nil {
		logger.KV(xlog.ERROR, "reason", "session", "err", err.Error())
		return err
	}
	logger.KV(xlog.INFO, "status", "stopped")
	return nil
}
