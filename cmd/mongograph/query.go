package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hanpama/mongograph/internal/client"
	"github.com/hanpama/mongograph/internal/config"
	"github.com/hanpama/mongograph/internal/eventbus"
	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// requestFlags describe one GraphQL request on the command line.
type requestFlags struct {
	variables     string
	operationName string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.variables, "variables", "", "Variables as a JSON object")
	cmd.Flags().StringVar(&f.operationName, "operation", "", "Operation to run when the document has several")
}

// request reads the document from args[0], or from stdin when it is absent
// or "-".
func (f *requestFlags) request(cmd *cobra.Command, args []string) (client.Request, error) {
	var query string
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return client.Request{}, fmt.Errorf("read query: %w", err)
		}
		query = string(b)
	} else {
		query = args[0]
	}
	req := client.Request{Query: strings.TrimSpace(query), OperationName: f.operationName}
	if f.variables != "" {
		if err := json.Unmarshal([]byte(f.variables), &req.Variables); err != nil {
			return client.Request{}, fmt.Errorf("invalid --variables JSON: %w", err)
		}
	}
	return req, nil
}

func newClient(cfg config.Config, conn executor.Connection) *client.Client {
	opts := []client.Option{
		client.WithCollections(cfg.Query.Collections...),
		client.WithMaxLimit(cfg.Query.MaxLimit),
		client.WithExecutorOptions(executor.WithMaxConcurrency(cfg.Query.MaxConcurrency)),
	}
	if cfg.Query.StackTraces {
		opts = append(opts, client.WithStackTraces())
	}
	return client.New(conn, opts...)
}

// setupLogging installs a fresh event bus with a zap subscriber.
func setupLogging(cfg config.Config) (*zap.Logger, func(), error) {
	logger, err := logging.New(cfg.Log.Development)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	eventbus.Use(eventbus.New())
	detach := logging.Attach(logger)
	return logger, func() {
		detach()
		_ = logger.Sync()
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTranslateCmd(g *globalFlags) *cobra.Command {
	var rf requestFlags
	cmd := &cobra.Command{
		Use:   "translate [query|-]",
		Short: "Print the MongoDB queries a GraphQL document translates to",
		Long:  "translate runs offline: it never connects to a database.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(false); err != nil {
				return err
			}
			_, cleanup, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			req, err := rf.request(cmd, args)
			if err != nil {
				return err
			}
			queries, err := newClient(cfg, nil).Translate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), queries)
		},
	}
	rf.register(cmd)
	return cmd
}

// newFindCmd builds "find", or "find-one" when one is set.
func newFindCmd(g *globalFlags, dial dialFunc, one bool) *cobra.Command {
	var rf requestFlags
	use, short := "find", "Read every collection in a GraphQL document"
	if one {
		use, short = "find-one", "Read a single document from the one collection in a GraphQL document"
	}
	cmd := &cobra.Command{
		Use:   use + " [query|-]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(true); err != nil {
				return err
			}
			_, cleanup, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			req, err := rf.request(cmd, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			conn, closeConn, err := dial(ctx, cfg.Mongo)
			if err != nil {
				return err
			}
			defer func() { _ = closeConn(ctx) }()

			c := newClient(cfg, conn)
			var (
				out    any
				failed int
			)
			if one {
				res, err := c.ExecuteOne(ctx, req)
				if err != nil {
					return err
				}
				out, failed = res, len(res.Errors)
			} else {
				res, err := c.Execute(ctx, req)
				if err != nil {
					return err
				}
				out, failed = res, len(res.Errors)
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d collection read(s) failed", failed)
			}
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}
