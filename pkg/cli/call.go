package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/getmockd/soapd/pkg/util"
	"github.com/spf13/cobra"
)

// ErrFault is returned by call --fail-on-fault when the response is a fault.
var ErrFault = errors.New("service returned a fault")

func newCallCmd(flags *globalFlags) *cobra.Command {
	var failOnFault bool
	cmd := &cobra.Command{
		Use:   "call [request.xml]",
		Short: "Handle one request envelope and print the response",
		Long: `Handle one SOAP request envelope with the configured service and print the
response envelope, without starting an HTTP server. The request is read from
the named file, or from stdin when the argument is omitted or "-".`,
		Example: `  soapd call ./hello.xml
  cat hello.xml | soapd call --fail-on-fault`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request, err := readRequest(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := a.newServer(a.logger)
			if err != nil {
				return err
			}
			srv.SetReturnResponse(true)

			resp, herr := srv.Handle(request)
			if resp == "" {
				resp = srv.LastResponse()
			}
			if resp != "" {
				fmt.Fprintln(cmd.OutOrStdout(), resp)
			}
			if herr != nil {
				return herr
			}
			if f := srv.LastFault(); f != nil && failOnFault {
				return fmt.Errorf("%w: %s: %s", ErrFault, f.Code, f.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnFault, "fail-on-fault", false, "Exit non-zero when the response is a fault")
	return cmd
}

func readRequest(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	path, ok := util.SafeFilePathAllowAbsolute(args[0])
	if !ok {
		return "", fmt.Errorf("unsafe request path %q", args[0])
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read request: %w", err)
	}
	return string(b), nil
}
