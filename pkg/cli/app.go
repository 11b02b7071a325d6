package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/getmockd/soapd/internal/demo"
	"github.com/getmockd/soapd/pkg/config"
	"github.com/getmockd/soapd/pkg/logging"
	"github.com/getmockd/soapd/pkg/soap"
	"github.com/getmockd/soapd/pkg/transport"
	"github.com/getmockd/soapd/pkg/util"
)

// app is the state shared by the commands that build SOAP servers.
type app struct {
	cfg     *config.Config
	catalog *soap.Catalog
	logger  *slog.Logger
	closers []io.Closer
}

// newApp loads the configuration and builds the process logger. logOut
// receives console log output.
func newApp(flags *globalFlags, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}

	a := &app{cfg: cfg, catalog: demo.NewCatalog()}

	logCfg := logging.Config{
		Level:     cfg.LogLevel(),
		Format:    logging.ParseFormat(cfg.Logging.Format),
		Output:    logOut,
		AddSource: cfg.Logging.AddSource,
	}
	if cfg.Logging.File != "" {
		f, err := openLogFile(cfg.Logging.File)
		if err != nil {
			return nil, err
		}
		logCfg.Tee = f
		a.closers = append(a.closers, f)
	}
	a.logger = logging.New(logCfg)
	return a, nil
}

func openLogFile(path string) (*os.File, error) {
	clean, ok := util.SafeFilePathAllowAbsolute(path)
	if !ok {
		return nil, fmt.Errorf("logging.file: unsafe path %q", path)
	}
	f, err := os.OpenFile(clean, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Close releases the log file, if any.
func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newServer builds one configured soap.Server. logger is the logger of the
// current request scope.
func (a *app) newServer(logger *slog.Logger, opts ...soap.Option) (*soap.Server, error) {
	base := []soap.Option{
		soap.WithCatalog(a.catalog),
		soap.WithLogger(logger),
	}
	if dir := a.cfg.Server.WSDLCacheDir; dir != "" {
		base = append(base, soap.WithWSDLCacheDir(dir))
	}
	srv := soap.NewServer(append(base, opts...)...)

	if err := srv.SetOptions(a.cfg.SOAPOptions()); err != nil {
		return nil, fmt.Errorf("soap options: %w", err)
	}
	svc := a.cfg.Service
	if svc.Class != "" {
		if err := srv.SetClass(svc.Class, svc.Namespace, svc.Args...); err != nil {
			return nil, fmt.Errorf("service.class: %w", err)
		}
	}
	if len(svc.Functions) > 0 {
		if err := srv.AddFunction(svc.FunctionNames()); err != nil {
			return nil, fmt.Errorf("service.functions: %w", err)
		}
	}
	if err := srv.SetPersistence(svc.PersistenceMode()); err != nil {
		return nil, fmt.Errorf("service.persistence: %w", err)
	}
	srv.RegisterFaultException(demo.FaultExceptions()...)
	srv.RegisterFaultException(svc.FaultExceptions...)
	return srv, nil
}

// factory returns a transport.ServerFactory building one server per request.
func (a *app) factory(opts ...soap.Option) transport.ServerFactory {
	return func(ctx context.Context) (*soap.Server, error) {
		return a.newServer(logging.FromContext(ctx, a.logger), opts...)
	}
}
