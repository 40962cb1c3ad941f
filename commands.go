package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/slighter12/rootstock-mcp-go/config"
	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/tools/types"
	"github.com/slighter12/rootstock-mcp-go/transport/http"
	"github.com/slighter12/rootstock-mcp-go/transport/stdio"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCmd(opts)

	root := &cobra.Command{
		Use:          "rootstock-mcp",
		Short:        "MCP server exposing Rootstock contract and token tools",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (JSON or YAML); defaults to MCP_CONFIG_PATH or ~/.rootstock-mcp/config/mcp_config.json")
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, newToolsCmd(opts), newArtifactsCmd(opts), newCallCmd(opts))
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var useStdio bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over streamable HTTP or stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if os.Getenv("MCP_USE_STDIO") == "true" {
				useStdio = true
			}
			if !cfg.TransportEnabled("streamable_http") && cfg.TransportEnabled("stdio") {
				useStdio = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, useStdio)
		},
	}
	cmd.Flags().BoolVar(&useStdio, "stdio", false, "serve newline-delimited JSON-RPC on stdin/stdout")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, useStdio bool) error {
	// Logs always go to stderr; stdout is reserved for protocol frames.
	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	a.watchArtifacts(ctx)

	if useStdio {
		logger.Info("Starting MCP server in stdio mode", "network", a.client.Network().Name)
		return stdio.NewStdioServer(a.dispatcher, cfg.Version).Start(ctx)
	}
	if !cfg.TransportEnabled("streamable_http") {
		return errors.New("no enabled transport can serve requests")
	}
	logger.Info("Starting MCP server in Streamable HTTP mode", "port", cfg.Server.Port, "network", a.client.Network().Name)
	return http.NewServer(cfg, a.dispatcher).Start(ctx)
}

func newToolsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, tool := range a.dispatcher.Tools() {
				required := strings.Join(tool.InputSchema.Required, ",")
				if required == "" {
					required = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", tool.Name, required, tool.Description)
			}
			return w.Flush()
		},
	}
}

func newArtifactsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "artifacts",
		Short: "List the contract artifacts available to the deploy tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, name := range a.store.Names() {
				artifact, err := a.store.Artifact(name)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "%s\t%d bytes\t%s\n", name, len(artifact.Bytecode), artifact.SourcePath)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			for _, loadErr := range a.store.LoadErrors() {
				fmt.Fprintf(out, "skipped: %s\n", loadErr)
			}
			return nil
		},
	}
}

func newCallCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-arguments]",
		Short: "Invoke one tool and print its result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs := map[string]any{}
			if len(args) == 2 && strings.TrimSpace(args[1]) != "" {
				if err := json.Unmarshal([]byte(args[1]), &toolArgs); err != nil {
					return fmt.Errorf("arguments must be a JSON object: %w", err)
				}
			}

			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			text, err := a.dispatcher.Dispatch(cmd.Context(), args[0], toolArgs)
			if err != nil {
				if toolErr, ok := types.AsToolError(err); ok {
					return fmt.Errorf("%s: %w", toolErr.Kind, toolErr)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
