// Package cmd provides the binserve command line.
//
// Configuration is read from binserve.json in the working directory unless
// --config or BINSERVE_CONFIG_FILE names another file. Individual settings
// can be overridden with BINSERVE_<SECTION>_<OPTION> environment variables,
// and the listen address and TLS key pair with flags.
package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/conneroisu/binserve/internal/config"
	"github.com/conneroisu/binserve/internal/version"
)

// ConfigFileEnv names the environment variable holding a configuration
// file path.
const ConfigFileEnv = "BINSERVE_CONFIG_FILE"

var (
	cfgFile  string
	logLevel string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "binserve",
		Short: "A fast static web server with templating and hot reload",
		Long: `binserve serves a site described by a single JSON or YAML file.

Every route is read, rendered and cached when the server starts. Small files
are answered from memory, large ones are streamed from disk, and Handlebars
templates (.hbs) are rendered with the configured partials and variables.
With hot reload enabled, edits to routed files, partials or the
configuration are picked up without a restart.

Running binserve without a subcommand is the same as "binserve serve". On
the first run in an empty directory a starter site is written.

Quick Start:
  binserve init                  Write the starter site
  binserve                       Serve the site in the current directory
  binserve routes                Print the route table
  binserve version               Show version information`,
		Version:       version.GetShortVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is "+config.DefaultFile+", can also use "+ConfigFileEnv+" env var)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error), overrides config.log_level")
	addServeFlags(root)

	root.AddCommand(newServeCmd(), newRoutesCmd(), newInitCmd(), newVersionCmd())
	root.SetGlobalNormalizationFunc(underscoreFlags)
	return root
}

// underscoreFlags accepts --log_level for --log-level, matching the
// spelling of the configuration keys.
func underscoreFlags(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(os.Stderr, err)
	}
	return err
}

// configPath resolves the configuration file: the --config flag first, then
// BINSERVE_CONFIG_FILE, then binserve.json in the working directory.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if env := os.Getenv(ConfigFileEnv); env != "" {
		return env
	}
	return config.DefaultFile
}
