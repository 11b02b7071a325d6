package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// effectiveOptions is the document printed by the options command.
type effectiveOptions struct {
	Config  string         `yaml:"config,omitempty"`
	Options map[string]any `yaml:"options"`
	Service serviceSummary `yaml:"service"`
}

type serviceSummary struct {
	Class           string   `yaml:"class,omitempty"`
	Operations      []string `yaml:"operations"`
	Persistence     string   `yaml:"persistence"`
	FaultExceptions []string `yaml:"fault_exceptions,omitempty"`
}

func newOptionsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Print the effective SOAP options as YAML",
		Long: `Print the SOAP options and service binding that result from the config file,
SOAPD_* environment variables and defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := a.newServer(a.logger)
			if err != nil {
				return err
			}
			doc := effectiveOptions{
				Config:  a.cfg.File(),
				Options: srv.Options(),
				Service: serviceSummary{
					Class:           a.cfg.Service.Class,
					Operations:      srv.Functions(),
					Persistence:     a.cfg.Service.Persistence,
					FaultExceptions: srv.FaultExceptions(),
				},
			}
			out, err := yaml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("render options: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
