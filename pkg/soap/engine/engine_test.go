package engine

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getmockd/soapd/pkg/soap/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testService struct {
	calls int
}

func (s *testService) TestFunc2(name string) string { return "Hello " + name + "!" }

func (s *testService) Count() int {
	s.calls++
	return s.calls
}

func (s *testService) Fail() error { return errors.New("boom") }

func (s *testService) Explode() string { panic("kaboom") }

func (s *testService) Sum(values []int) (int, error) {
	total := 0
	for _, v := range values {
		total += v
	}
	return total, nil
}

type point struct {
	X int `soap:"x"`
	Y int `soap:"y"`
}

func request11(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<SOAP-ENV:Envelope xmlns:SOAP-ENV="` + envelope.SOAP11Namespace + `"` +
		` xmlns:ns1="http://framework.zend.com"` +
		` xmlns:xsd="` + envelope.XSDNamespace + `"` +
		` xmlns:xsi="` + envelope.XSINamespace + `"` +
		` xmlns:SOAP-ENC="` + envelope.SOAP11EncodingNamespace + `">` +
		`<SOAP-ENV:Body>` + body + `</SOAP-ENV:Body></SOAP-ENV:Envelope>`
}

func request12(body string) string {
	return `<env:Envelope xmlns:env="` + envelope.SOAP12Namespace + `" xmlns:ns1="urn:test">` +
		`<env:Body>` + body + `</env:Body></env:Envelope>`
}

func newClassEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.URI == "" && cfg.WSDL == "" {
		cfg.URI = "http://framework.zend.com"
	}
	e, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.SetClass(Class{Type: reflect.TypeOf(testService{})}))
	return e
}

func TestNew_RequiresURIWithoutWSDL(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrURIRequired)
}

func TestHandle_ClassRoundTrip(t *testing.T) {
	e := newClassEngine(t, Config{})

	req := request11(`<ns1:testFunc2><param0 xsi:type="xsd:string">World</param0></ns1:testFunc2>`)
	resp, err := e.Handle(req)
	require.NoError(t, err)

	assert.Contains(t, resp, `<ns1:testFunc2Response><return xsi:type="xsd:string">Hello World!</return></ns1:testFunc2Response>`)
	assert.Contains(t, resp, `xmlns:ns1="http://framework.zend.com"`)
	assert.Equal(t, req, e.LastRequest())
	assert.Equal(t, resp, e.LastResponse())
}

func TestHandle_SOAP12Response(t *testing.T) {
	e := newClassEngine(t, Config{URI: "urn:test"})

	resp, err := e.Handle(request12(`<ns1:testFunc2><name>Go</name></ns1:testFunc2>`))
	require.NoError(t, err)
	assert.Contains(t, resp, `<env:Envelope xmlns:env="`+envelope.SOAP12Namespace+`"`)
	assert.Contains(t, resp, `Hello Go!`)
}

func TestHandle_UnknownOperation(t *testing.T) {
	e := newClassEngine(t, Config{})

	resp, err := e.Handle(request11(`<ns1:nope/>`))
	require.NoError(t, err)
	assert.Contains(t, resp, `<faultcode>Sender</faultcode>`)
	assert.Contains(t, resp, `Function ("nope") is not a valid method for this service`)
}

func TestHandle_MissingParameterIsReceiverFault(t *testing.T) {
	e := newClassEngine(t, Config{})

	resp, err := e.Handle(request11(`<ns1:testFunc2/>`))
	require.NoError(t, err)
	assert.Contains(t, resp, `<faultcode>Receiver</faultcode>`)
	assert.Contains(t, resp, "missing parameter 1 of testFunc2")
}

func TestHandle_UndecodableParameterIsSenderFault(t *testing.T) {
	e := newClassEngine(t, Config{})

	resp, err := e.Handle(request11(`<ns1:sum><values><item>1</item><item>two</item></values></ns1:sum>`))
	require.NoError(t, err)
	assert.Contains(t, resp, `<faultcode>Sender</faultcode>`)
	assert.Contains(t, resp, "Violation of encoding rules")
}

func TestHandle_WrongVersion(t *testing.T) {
	e := newClassEngine(t, Config{Version: envelope.SOAP11})

	resp, err := e.Handle(`<Envelope xmlns="urn:not-soap"><Body><testFunc2/></Body></Envelope>`)
	require.NoError(t, err)
	assert.Contains(t, resp, `<faultcode>VersionMismatch</faultcode>`)
	assert.Contains(t, resp, `Wrong Version`)
}

func TestHandle_ServiceErrorIsReturned(t *testing.T) {
	e := newClassEngine(t, Config{})

	resp, err := e.Handle(request11(`<ns1:fail/>`))
	assert.Empty(t, resp)
	require.EqualError(t, err, "boom")

	out := e.Fault(&envelope.Fault{Code: envelope.CodeReceiver, Message: "Unknown error"})
	assert.Contains(t, out, `<faultstring>Unknown error</faultstring>`)
	assert.Equal(t, out, e.LastResponse())
}

func TestHandle_PanicIsRecovered(t *testing.T) {
	e := newClassEngine(t, Config{})

	_, err := e.Handle(request11(`<ns1:explode/>`))
	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "kaboom", perr.Value)
}

func TestHandle_Persistence(t *testing.T) {
	tests := []struct {
		name        string
		persistence Persistence
		want        string
	}{
		{"per request", PersistenceRequest, ">1</return>"},
		{"session", PersistenceSession, ">2</return>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newClassEngine(t, Config{Persistence: tt.persistence})
			_, err := e.Handle(request11(`<ns1:count/>`))
			require.NoError(t, err)
			resp, err := e.Handle(request11(`<ns1:count/>`))
			require.NoError(t, err)
			assert.Contains(t, resp, tt.want)
		})
	}
}

func TestHandle_Functions(t *testing.T) {
	e, err := New(Config{URI: "urn:test"})
	require.NoError(t, err)
	require.NoError(t, e.AddFunction("strrev", reflect.ValueOf(func(s string) string {
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return string(r)
	})))
	assert.Error(t, e.AddFunction("bad", reflect.ValueOf(42)))

	resp, err := e.Handle(request11(`<ns1:strrev><s>abc</s></ns1:strrev>`))
	require.NoError(t, err)
	assert.Contains(t, resp, `<return xsi:type="xsd:string">cba</return>`)
}

func TestHandle_ObjectBinding(t *testing.T) {
	e, err := New(Config{URI: "urn:test"})
	require.NoError(t, err)
	svc := &testService{calls: 10}
	require.NoError(t, e.SetObject(reflect.ValueOf(svc)))

	resp, err := e.Handle(request11(`<ns1:count/>`))
	require.NoError(t, err)
	assert.Contains(t, resp, ">11</return>")
	assert.Equal(t, 11, svc.calls)

	assert.Error(t, e.SetObject(reflect.ValueOf(3)))
}

func TestHandle_Constructor(t *testing.T) {
	e, err := New(Config{URI: "urn:test", Persistence: PersistenceSession})
	require.NoError(t, err)
	require.NoError(t, e.SetClass(Class{
		Type: reflect.TypeOf(testService{}),
		New:  reflect.ValueOf(func(start int) *testService { return &testService{calls: start} }),
		Args: []any{41},
	}))

	resp, err := e.Handle(request11(`<ns1:count/>`))
	require.NoError(t, err)
	assert.Contains(t, resp, ">42</return>")
}

func TestHandle_ConstructorError(t *testing.T) {
	e, err := New(Config{URI: "urn:test"})
	require.NoError(t, err)
	require.NoError(t, e.SetClass(Class{
		Type: reflect.TypeOf(testService{}),
		New:  reflect.ValueOf(func() (*testService, error) { return nil, errors.New("no backend") }),
	}))

	_, err = e.Handle(request11(`<ns1:count/>`))
	assert.EqualError(t, err, "no backend")
}

func TestHandle_MustUnderstand(t *testing.T) {
	e := newClassEngine(t, Config{Actor: "urn:me"})

	header := func(attrs string) string {
		return `<SOAP-ENV:Envelope xmlns:SOAP-ENV="` + envelope.SOAP11Namespace + `" xmlns:ns1="urn:x">` +
			`<SOAP-ENV:Header><ns1:auth ` + attrs + `>t</ns1:auth></SOAP-ENV:Header>` +
			`<SOAP-ENV:Body><ns1:count/></SOAP-ENV:Body></SOAP-ENV:Envelope>`
	}

	resp, err := e.Handle(header(`SOAP-ENV:mustUnderstand="1"`))
	require.NoError(t, err)
	assert.Contains(t, resp, `<faultcode>MustUnderstand</faultcode>`)

	resp, err = e.Handle(header(`SOAP-ENV:mustUnderstand="1" SOAP-ENV:actor="urn:me"`))
	require.NoError(t, err)
	assert.Contains(t, resp, `<faultcode>MustUnderstand</faultcode>`)

	resp, err = e.Handle(header(`SOAP-ENV:mustUnderstand="1" SOAP-ENV:actor="urn:someone-else"`))
	require.NoError(t, err)
	assert.Contains(t, resp, `countResponse`)

	resp, err = e.Handle(header(`SOAP-ENV:mustUnderstand="0"`))
	require.NoError(t, err)
	assert.Contains(t, resp, `countResponse`)
}

func TestHandle_Encoding(t *testing.T) {
	e := newClassEngine(t, Config{Encoding: "ISO-8859-1"})

	resp, err := e.Handle(request11(`<ns1:testFunc2><n>Jos` + "é" + `</n></ns1:testFunc2>`))
	require.NoError(t, err)
	assert.Contains(t, resp, `encoding="ISO-8859-1"`)
	assert.Contains(t, resp, "Hello Jos\xe9!")
}

func TestHandle_WSDLRestrictsOperations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svc.wsdl")
	wsdl := `<definitions xmlns="http://schemas.xmlsoap.org/wsdl/" targetNamespace="urn:from-wsdl">` +
		`<portType name="P"><operation name="testFunc2"/></portType></definitions>`
	require.NoError(t, os.WriteFile(path, []byte(wsdl), 0o644))

	e := newClassEngine(t, Config{WSDL: path})
	require.NotNil(t, e.WSDL())
	assert.Equal(t, []string{"testFunc2"}, e.WSDL().Operations)

	resp, err := e.Handle(request11(`<ns1:testFunc2><n>A</n></ns1:testFunc2>`))
	require.NoError(t, err)
	assert.Contains(t, resp, `xmlns:ns1="urn:from-wsdl"`)

	resp, err = e.Handle(request11(`<ns1:count/>`))
	require.NoError(t, err)
	assert.Contains(t, resp, `is not a valid method for this service`)
}

func TestNew_WSDLLoadFailure(t *testing.T) {
	_, err := New(Config{WSDL: filepath.Join(t.TempDir(), "missing.wsdl")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Parsing WSDL")
}

func TestLoader_RemoteDiskCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<definitions targetNamespace="urn:remote"/>`)
	}))
	defer srv.Close()

	l := &Loader{Client: srv.Client(), CacheDir: t.TempDir(), Mode: CacheDisk}
	w, err := l.Load(srv.URL + "/svc?wsdl")
	require.NoError(t, err)
	assert.Equal(t, "urn:remote", w.TargetNamespace)

	_, err = l.Load(srv.URL + "/svc?wsdl")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLoader_StaleDiskCacheIsRefetched(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<definitions targetNamespace="urn:fresh"/>`)
	}))
	defer srv.Close()

	l := &Loader{Client: srv.Client(), CacheDir: t.TempDir(), Mode: CacheDisk}
	src := srv.URL + "/svc?wsdl"
	path := l.diskPath(src)
	require.NoError(t, os.WriteFile(path, []byte(`<definitions targetNamespace="urn:stale"/>`), 0o644))
	old := time.Now().Add(-2 * CacheTTL)
	require.NoError(t, os.Chtimes(path, old, old))

	w, err := l.Load(src)
	require.NoError(t, err)
	assert.Equal(t, "urn:fresh", w.TargetNamespace)
	assert.Equal(t, int32(1), hits.Load())

	cached, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(cached), "urn:fresh")
}

func TestLoader_RemoteMemoryCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<definitions targetNamespace="urn:memory"/>`)
	}))
	defer srv.Close()

	l := &Loader{Client: srv.Client(), Mode: CacheMemory}
	first, err := l.Load(srv.URL + "/mem?wsdl")
	require.NoError(t, err)
	second, err := l.Load(srv.URL + "/mem?wsdl")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLoader_DiskCacheWriteFailureIsLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<definitions targetNamespace="urn:remote"/>`)
	}))
	defer srv.Close()

	// A regular file where the cache directory should be.
	blocker := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := &Loader{Client: srv.Client(), CacheDir: filepath.Join(blocker, "wsdl"), Mode: CacheDisk, Logger: logger}

	w, err := l.Load(srv.URL + "/svc?wsdl")
	require.NoError(t, err)
	assert.Equal(t, "urn:remote", w.TargetNamespace)
	assert.Contains(t, buf.String(), "wsdl disk cache write failed")
}

func TestLoader_RemoteStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := (&Loader{Client: srv.Client()}).Load(srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestParseWSDL_Errors(t *testing.T) {
	_, err := ParseWSDL([]byte(`<notwsdl/>`))
	assert.Error(t, err)
	_, err = ParseWSDL([]byte(`<definitions`))
	assert.Error(t, err)

	w, err := ParseWSDL([]byte(`<definitions/>`))
	require.NoError(t, err)
	assert.True(t, w.HasOperation("anything"))
}

func TestMethodOperations(t *testing.T) {
	assert.Equal(t,
		[]string{"count", "explode", "fail", "sum", "testFunc2"},
		MethodOperations(reflect.TypeOf(&testService{})))
	assert.Equal(t, "sayHello", OperationName("SayHello"))
}

func TestEncode_Composite(t *testing.T) {
	e, err := New(Config{URI: "urn:test", Classmap: map[string]reflect.Type{"Point": reflect.TypeOf(point{})}})
	require.NoError(t, err)
	require.NoError(t, e.AddFunction("values", reflect.ValueOf(func() ([]string, point, map[string]int) {
		return []string{"a", "b"}, point{X: 1, Y: 2}, map[string]int{"z": 26, "a": 1}
	})))

	resp, err := e.Handle(request11(`<ns1:values/>`))
	require.NoError(t, err)
	assert.Contains(t, resp, `<return xsi:type="SOAP-ENC:Array" SOAP-ENC:arrayType="xsd:string[2]"><item xsi:type="xsd:string">a</item>`)
	assert.Contains(t, resp, `<return1 xsi:type="ns1:Point"><x xsi:type="xsd:int">1</x><y xsi:type="xsd:int">2</y></return1>`)
	assert.Contains(t, resp, `<return2 xsi:type="SOAP-ENC:Struct"><a xsi:type="xsd:int">1</a><z xsi:type="xsd:int">26</z></return2>`)
}

func TestDecode_AnyWithClassmap(t *testing.T) {
	var got any
	e, err := New(Config{
		URI:      "urn:test",
		Classmap: map[string]reflect.Type{"Point": reflect.TypeOf(point{})},
		Features: FeatureSingleElementArrays,
	})
	require.NoError(t, err)
	require.NoError(t, e.AddFunction("take", reflect.ValueOf(func(a, b any) { got = []any{a, b} })))

	_, err = e.Handle(request11(
		`<ns1:take>` +
			`<a xsi:type="ns1:Point"><x>3</x><y>4</y></a>` +
			`<b><name>n</name><tag>t1</tag><tag>t2</tag></b>` +
			`</ns1:take>`))
	require.NoError(t, err)

	pair := got.([]any)
	assert.Equal(t, point{X: 3, Y: 4}, pair[0])
	assert.Equal(t, map[string]any{"name": []any{"n"}, "tag": []any{"t1", "t2"}}, pair[1])
}

func TestDecode_Scalars(t *testing.T) {
	type args struct {
		B   bool
		U   uint8
		F   float64
		Raw []byte
		P   *int
	}
	var got args
	e, err := New(Config{URI: "urn:test"})
	require.NoError(t, err)
	require.NoError(t, e.AddFunction("scalars", reflect.ValueOf(func(b bool, u uint8, f float64, raw []byte, p *int) {
		got = args{b, u, f, raw, p}
	})))

	resp, err := e.Handle(request11(
		`<ns1:scalars><b>true</b><u>200</u><f>1.5</f><raw>aGk=</raw><p xsi:nil="true"/></ns1:scalars>`))
	require.NoError(t, err)
	assert.True(t, strings.Contains(resp, "scalarsResponse"))
	assert.Equal(t, args{B: true, U: 200, F: 1.5, Raw: []byte("hi")}, got)

	resp, err = e.Handle(request11(`<ns1:scalars><b>yes</b><u>1</u><f>1</f><raw/><p>1</p></ns1:scalars>`))
	require.NoError(t, err)
	assert.Contains(t, resp, "invalid boolean")
}
