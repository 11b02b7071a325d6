package cli

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/getmockd/soapd/pkg/metrics"
	"github.com/getmockd/soapd/pkg/ratelimit"
	"github.com/getmockd/soapd/pkg/soap"
	soaptls "github.com/getmockd/soapd/pkg/tls"
	"github.com/getmockd/soapd/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SOAP server",
		Long: `Start the SOAP server.

POST envelopes to server.path. GET server.path?wsdl returns server.wsdl_file
when one is configured. /healthz and, unless disabled, metrics.path are served
next to it.`,
		Example: `  # Serve with soapd.yaml from the working directory
  soapd serve

  # Serve a specific config on another port
  soapd serve -c ./greeter.yaml --address :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			if address != "" {
				a.cfg.Server.Address = address
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			srv, err := a.httpServer(metrics.NewRegistry())
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Override server.address")
	return cmd
}

// httpServer wires the SOAP handler, middleware and metrics into an HTTP
// server. It fails early when the service configuration cannot build an
// engine.
func (a *app) httpServer(reg *prometheus.Registry) (*transport.Server, error) {
	cfg := a.cfg

	var m *metrics.Metrics
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		m = metrics.New(reg)
		metricsHandler = metrics.Handler(reg)
	}

	probe, err := a.newServer(a.logger)
	if err != nil {
		return nil, err
	}
	if err := probe.Prepare(); err != nil {
		return nil, err
	}

	handler := transport.NewHandler(a.factory(soap.WithObserver(m)),
		transport.WithWSDLFile(cfg.Server.WSDLFile),
		transport.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		transport.WithHandlerLogger(a.logger),
		transport.WithMetrics(m),
	)

	mws := []transport.Middleware{
		transport.Recover(a.logger),
		transport.RequestID(a.logger),
		transport.AccessLog(a.logger),
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewPerIPLimiter(ratelimit.PerIPConfig{
			Rate:           cfg.RateLimit.Rate,
			Burst:          cfg.RateLimit.Burst,
			TrustedProxies: cfg.RateLimit.TrustedProxies,
		})
		mws = append(mws, ratelimit.Middleware(limiter))
	}
	if cfg.Auth.Enabled {
		auth := transport.NewAuthenticator(transport.AuthConfig{
			Secret:   []byte(cfg.Auth.Secret),
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		})
		mws = append(mws, auth.Middleware)
	}

	routes := transport.Routes{
		SOAPPath: cfg.Server.Path,
		SOAP:     transport.Chain(handler, mws...),
	}
	if metricsHandler != nil {
		routes.MetricsPath = cfg.Metrics.Path
		routes.Metrics = metricsHandler
	}

	a.logger.Info("soap service configured",
		"path", cfg.Server.Path,
		"uri", probe.URI(),
		"wsdl", probe.WSDL(),
		"operations", probe.Functions(),
		"config", cfg.File())

	serverCfg := transport.ServerConfig{
		Address:         cfg.Server.Address,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	if t := cfg.Server.TLS; t.Enabled {
		serverCfg.TLS, err = soaptls.ServerConfig(soaptls.Config{
			CertFile:     t.CertFile,
			KeyFile:      t.KeyFile,
			AutoGenerate: t.AutoGenerate,
			Hosts:        t.Hosts,
		})
		if err != nil {
			return nil, fmt.Errorf("server.tls: %w", err)
		}
	}
	return transport.NewServer(serverCfg, transport.NewMux(routes), a.logger), nil
}
