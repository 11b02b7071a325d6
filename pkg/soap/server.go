package soap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"reflect"
	"time"

	"github.com/beevik/etree"
	"github.com/getmockd/soapd/pkg/logging"
	"github.com/getmockd/soapd/pkg/soap/engine"
	"github.com/getmockd/soapd/pkg/soap/envelope"
	"github.com/getmockd/soapd/pkg/util"
)

// Engine executes SOAP requests against a bound service.
type Engine interface {
	AddFunction(name string, fn reflect.Value) error
	SetClass(c engine.Class) error
	SetObject(obj reflect.Value) error

	// Handle returns a response or protocol fault envelope, or the error a
	// service call failed with.
	Handle(request string) (string, error)

	// Fault renders f as a fault envelope and records it as the last response.
	Fault(f *Fault) string

	LastRequest() string
	LastResponse() string
}

// EngineFactory builds an engine from the resolved options.
type EngineFactory func(engine.Config) (Engine, error)

// DefaultEngineFactory builds the engine of package engine.
func DefaultEngineFactory(cfg engine.Config) (Engine, error) {
	e, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Observer is told the outcome of every Handle call.
type Observer interface {
	ObserveHandle(outcome Outcome, faultCode string, d time.Duration)
}

// Server mediates SOAP requests between a caller and an engine.
//
// A Server is not safe for concurrent use. Build one per request scope.
type Server struct {
	OptionSet
	FaultRegistry

	catalog    *Catalog
	binding    binding
	factory    EngineFactory
	httpClient *http.Client
	cacheDir   string

	engine    Engine
	engineGen uint64

	logger   *slog.Logger
	output   io.Writer
	observer Observer

	returnResponse bool
	lastRequest    string
	lastResponse   string
	lastFault      *Fault
}

// Option configures a Server.
type Option func(*Server)

// WithCatalog resolves registrations against c instead of DefaultCatalog.
func WithCatalog(c *Catalog) Option {
	return func(s *Server) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithEngineFactory replaces the engine implementation.
func WithEngineFactory(f EngineFactory) Option {
	return func(s *Server) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOutput sets where responses are written when the server is not in
// return mode. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Server) {
		if w != nil {
			s.output = w
		}
	}
}

// WithObserver reports every Handle outcome to o.
func WithObserver(o Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithHTTPClient sets the client used to fetch remote WSDL documents.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) { s.httpClient = c }
}

// WithWSDLCacheDir sets the directory of the WSDL disk cache.
func WithWSDLCacheDir(dir string) Option {
	return func(s *Server) { s.cacheDir = dir }
}

// NewServer creates a server with default options: SOAP 1.2 and emit mode.
func NewServer(opts ...Option) *Server {
	s := &Server{
		catalog: DefaultCatalog,
		factory: DefaultEngineFactory,
		logger:  logging.Nop(),
		output:  os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.OptionSet = newOptionSet(s.catalog, s.logger)
	return s
}

// Catalog returns the catalog registrations are resolved against.
func (s *Server) Catalog() *Catalog { return s.catalog }

// SetReturnResponse selects return mode (true) or emit mode (false).
func (s *Server) SetReturnResponse(v bool) { s.returnResponse = v }

// ReturnResponse reports whether Handle returns responses instead of writing them.
func (s *Server) ReturnResponse() bool { return s.returnResponse }

// LastRequest returns the request text of the most recent Handle call.
func (s *Server) LastRequest() string { return s.lastRequest }

// LastResponse returns the response or fault text of the most recent Handle call.
func (s *Server) LastResponse() string { return s.lastResponse }

// LastFault returns the fault of the most recent Handle call, or nil.
func (s *Server) LastFault() *Fault { return s.lastFault }

func (s *Server) touch() { s.OptionSet.gen++ }

// Prepare builds the engine for the current options and binding without
// handling a request. Handle calls it implicitly.
func (s *Server) Prepare() error {
	_, err := s.currentEngine()
	return err
}

// HandleDocument serializes doc and handles it as a request.
func (s *Server) HandleDocument(doc *etree.Document) (string, error) {
	if doc == nil {
		return s.Handle("")
	}
	text, err := doc.WriteToString()
	if err != nil {
		return "", &XMLError{Reason: err.Error(), Err: err}
	}
	return s.Handle(text)
}

// Handle processes one request. In return mode the response is returned; in
// emit mode it is written to the output and "" is returned. Requests refused
// by the gate never reach the engine and yield an error matching
// ErrInvalidXML in both modes. Service errors are converted into faults.
func (s *Server) Handle(request string) (string, error) {
	start := time.Now()
	s.lastRequest = request
	s.lastResponse = ""
	s.lastFault = nil

	if err := checkRequest(request); err != nil {
		f := &Fault{Code: envelope.CodeSender, Message: err.Error()}
		s.lastFault = f
		s.lastResponse = envelope.RenderFault(s.SOAPVersion(), f, s.Encoding())
		s.logger.Debug("request rejected", "error", err, "request", util.TruncateBody(request, 0))
		s.observe(OutcomeRejected, f.Code, start)
		if !s.returnResponse {
			if werr := s.emit(s.lastResponse); werr != nil {
				return "", errors.Join(err, werr)
			}
		}
		return "", err
	}

	eng, err := s.currentEngine()
	if err != nil {
		s.logger.Error("failed to build soap engine", "error", err)
		s.observe(OutcomeError, "", start)
		return "", err
	}

	resp, err := eng.Handle(request)
	outcome := OutcomeOK
	if err != nil {
		f := s.Fault(ErrorCause{Err: err}, CodeReceiver)
		s.logger.Warn("service call failed",
			"error", err,
			"errorType", ErrorTypeName(err),
			"fault", f.Message)
		resp = eng.Fault(f)
		s.lastFault = f
		outcome = OutcomeFault
	} else if f, ok := envelope.ParseFault(resp); ok {
		s.lastFault = f
		outcome = OutcomeFault
	}
	s.lastResponse = resp

	code := ""
	if s.lastFault != nil {
		code = s.lastFault.Code
	}
	s.observe(outcome, code, start)

	if s.returnResponse {
		return resp, nil
	}
	return "", s.emit(resp)
}

func (s *Server) emit(resp string) error {
	if _, err := io.WriteString(s.output, resp); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (s *Server) observe(outcome Outcome, code string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveHandle(outcome, code, time.Since(start))
	}
}

// currentEngine returns the engine for the current configuration, building a
// new one after any option or binding change.
func (s *Server) currentEngine() (Engine, error) {
	if s.engine != nil && s.engineGen == s.OptionSet.gen {
		return s.engine, nil
	}

	features, _ := s.Features()
	cache, _ := s.WSDLCache()
	persistence, _ := s.Persistence()
	cfg := engine.Config{
		Version:     s.SOAPVersion(),
		URI:         s.URI(),
		Actor:       s.Actor(),
		Encoding:    s.Encoding(),
		WSDL:        s.WSDL(),
		Classmap:    s.classTypes,
		Features:    features,
		CacheMode:   cache,
		CacheDir:    s.cacheDir,
		Persistence: persistence,
		HTTPClient:  s.httpClient,
		Logger:      s.logger,
	}

	eng, err := s.factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	if err := s.bind(eng); err != nil {
		return nil, err
	}

	s.engine = eng
	s.engineGen = s.OptionSet.gen
	s.logger.Debug("soap engine built",
		"version", cfg.Version.String(),
		"uri", cfg.URI,
		"wsdl", cfg.WSDL)
	return eng, nil
}
