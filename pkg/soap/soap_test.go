package soap

import (
	"errors"
	"reflect"
	"testing"

	"github.com/getmockd/soapd/pkg/soap/engine"
	"github.com/getmockd/soapd/pkg/soap/envelope"
	"github.com/stretchr/testify/require"
)

// serverTestClass is the service bound in most server tests.
type serverTestClass struct{}

func (*serverTestClass) TestFunc1() string                  { return "Hello World" }
func (*serverTestClass) TestFunc2(who string) string        { return "Hello " + who + "!" }
func (*serverTestClass) TestFunc3(who string, n int) string { return who }
func (*serverTestClass) TestFunc4() bool                    { return true }
func (*serverTestClass) TestFunc5() int                     { return 123 }

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

type faultingService struct {
	err error
}

func (s *faultingService) Explode() error { return s.err }

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog()
	require.NoError(t, c.RegisterFunc("strtolower", func(s string) string { return s }))
	require.NoError(t, c.RegisterFunc("strtoupper", func(s string) string { return s }))
	require.NoError(t, c.RegisterFunc("substr", func(s string, start int) string { return s[start:] }))
	require.NoError(t, c.RegisterType("ServerTestClass", serverTestClass{}))
	require.NoError(t, c.RegisterType("ValidationError", validationError{}))
	return c
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	return NewServer(append([]Option{WithCatalog(newTestCatalog(t))}, opts...)...)
}

// fakeEngine records what the server hands it.
type fakeEngine struct {
	cfg       engine.Config
	functions []string
	class     *engine.Class
	object    reflect.Value

	handled  []string
	response string
	err      error

	lastRequest  string
	lastResponse string
}

func (f *fakeEngine) AddFunction(name string, _ reflect.Value) error {
	f.functions = append(f.functions, name)
	return nil
}

func (f *fakeEngine) SetClass(c engine.Class) error {
	f.class = &c
	return nil
}

func (f *fakeEngine) SetObject(obj reflect.Value) error {
	f.object = obj
	return nil
}

func (f *fakeEngine) Handle(request string) (string, error) {
	f.handled = append(f.handled, request)
	f.lastRequest = request
	if f.err != nil {
		return "", f.err
	}
	f.lastResponse = f.response
	return f.response, nil
}

func (f *fakeEngine) Fault(fault *Fault) string {
	f.lastResponse = envelope.RenderFault(envelope.SOAP11, fault, "")
	return f.lastResponse
}

func (f *fakeEngine) LastRequest() string  { return f.lastRequest }
func (f *fakeEngine) LastResponse() string { return f.lastResponse }

// fakeFactory hands out one engine per build.
type fakeFactory struct {
	built    []*fakeEngine
	response string
	err      error
	buildErr error
}

func (f *fakeFactory) New(cfg engine.Config) (Engine, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	e := &fakeEngine{cfg: cfg, response: f.response, err: f.err}
	f.built = append(f.built, e)
	return e, nil
}

func (f *fakeFactory) last() *fakeEngine {
	if len(f.built) == 0 {
		return nil
	}
	return f.built[len(f.built)-1]
}

var errBoom = errors.New("boom")

const okResponse = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">` +
	`<SOAP-ENV:Body><ok/></SOAP-ENV:Body></SOAP-ENV:Envelope>`

func request11(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/"` +
		` xmlns:ns1="http://framework.zend.com"` +
		` xmlns:xsd="http://www.w3.org/2001/XMLSchema"` +
		` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"` +
		` xmlns:SOAP-ENC="http://schemas.xmlsoap.org/soap/encoding/"` +
		` SOAP-ENV:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">` +
		`<SOAP-ENV:Body>` + body + `</SOAP-ENV:Body></SOAP-ENV:Envelope>` + "\n"
}
