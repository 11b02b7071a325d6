package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCmd builds the soapd command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "soapd",
		Short: "soapd serves Go services over SOAP",
		Long: `soapd exposes functions and types from its service catalog as SOAP 1.1 and
SOAP 1.2 operations over HTTP.

Configuration is read from soapd.yaml in the working directory or
$XDG_CONFIG_HOME/soapd, or from the file given with --config. Every key can
be overridden with a SOAPD_* environment variable, e.g. SOAPD_SERVER_ADDRESS.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file path")
	pf.StringVar(&flags.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Override logging.format (text, json)")

	root.AddCommand(
		newServeCmd(flags),
		newCallCmd(flags),
		newOptionsCmd(flags),
		newValidateCmd(flags),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
