package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without starting the server",
		Long: `Check the configuration without starting the server.

This command checks:
  - config file syntax and field values
  - the soap options (URN, encoding, classmap, version)
  - that the service class and functions exist in the catalog
  - that an engine can be built, loading the WSDL if one is set`,
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
			if err := srv.Prepare(); err != nil {
				return err
			}

			source := a.cfg.File()
			if source == "" {
				source = "defaults and environment"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK (%s): %d operation(s)\n", source, len(srv.Functions()))
			return nil
		},
	}
}
