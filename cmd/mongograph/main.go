package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hanpama/mongograph/internal/config"
	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/mongostore"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(defaultDial).Execute(); err != nil {
		os.Exit(1)
	}
}

// dialFunc opens the connection used by find, find-one and serve.
type dialFunc func(ctx context.Context, cfg config.MongoConfig) (executor.Connection, func(context.Context) error, error)

func defaultDial(ctx context.Context, cfg config.MongoConfig) (executor.Connection, func(context.Context) error, error) {
	store, err := mongostore.Dial(ctx, cfg.URI, cfg.Database,
		mongostore.WithConnectTimeout(cfg.ConnectTimeout),
		mongostore.WithAppName(cfg.AppName),
	)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// globalFlags are shared by every subcommand and override the config file.
type globalFlags struct {
	configPath string
	mongoURI   string
	database   string
	logDev     bool
}

func (g *globalFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("mongo.uri") {
		cfg.Mongo.URI = g.mongoURI
	}
	if cmd.Flags().Changed("mongo.database") {
		cfg.Mongo.Database = g.database
	}
	if cmd.Flags().Changed("log.dev") {
		cfg.Log.Development = g.logDev
	}
	return cfg, nil
}

func newRootCmd(dial dialFunc) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "mongograph",
		Short: "Query MongoDB collections with schema-less GraphQL documents",
		Long: `mongograph translates GraphQL documents into MongoDB find queries.

Every root field names a collection. Leaf arguments (eq, ne, gt, gte, lt, lte,
in, nin, exists, regex, options) become filters, the selection becomes the
projection, @sort/@sortDesc order results, and limit/skip page them.`,
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&g.mongoURI, "mongo.uri", "", fmt.Sprintf("MongoDB connection string (env %s)", config.EnvMongoURI))
	pf.StringVar(&g.database, "mongo.database", "", fmt.Sprintf("Database name (env %s)", config.EnvDatabase))
	pf.BoolVar(&g.logDev, "log.dev", false, "Human-readable development logging")

	root.AddCommand(
		newServeCmd(g, dial),
		newTranslateCmd(g),
		newFindCmd(g, dial, false),
		newFindCmd(g, dial, true),
	)
	return root
}
