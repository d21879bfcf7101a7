package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/graphlens/internal/datasource"
	"github.com/vanderheijden86/graphlens/pkg/config"
	"github.com/vanderheijden86/graphlens/pkg/debug"
	"github.com/vanderheijden86/graphlens/pkg/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCLI(os.Stdout, os.Stderr).rootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds state shared by every command.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	logger *log.Logger

	configPath string
	verbose    bool
	load       datasource.Options
	cfg        config.Config
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{
		stdout: stdout,
		stderr: stderr,
		logger: debug.NewLogger(stderr, log.InfoLevel),
		cfg:    config.DefaultConfig(),
	}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "graphlens",
		Short: "graphlens lays out and explores property graphs",
		Long: `graphlens loads a typed property graph from a JSON file, a SQLite
database or a Neo4j server and lays it out with a force-directed simulation
or a static grid or circle.

Payload sources:
  graph.json             JSON payload file
  sqlite://graph.db      SQLite database
  neo4j://host:7687      Neo4j server (see --neo4j-user)`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default: "+config.ConfigPath()+")")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&c.load.Neo4jUser, "neo4j-user", os.Getenv("NEO4J_USER"), "Neo4j user name")
	pf.StringVar(&c.load.Neo4jPassword, "neo4j-password", os.Getenv("NEO4J_PASSWORD"), "Neo4j password")
	pf.StringVar(&c.load.Neo4jDatabase, "neo4j-database", "", "Neo4j database (default: server default)")

	root.AddCommand(c.viewCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.diffCommand())
	return root
}

// setup loads the configuration and sets the log level before any command
// runs.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	if c.verbose {
		c.logger.SetLevel(log.DebugLevel)
		debug.SetEnabled(true)
	}
	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadFrom(c.configPath)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.logger.Debug("config loaded", "path", c.configPath, "host", c.cfg.Host.BaseURL)
	return nil
}
