package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/beevik/etree"
	"github.com/getmockd/soapd/pkg/logging"
	"github.com/getmockd/soapd/pkg/soap/envelope"
	"golang.org/x/net/html/charset"
)

// ErrURIRequired is returned by New when neither a URI nor a WSDL is configured.
var ErrURIRequired = errors.New("'uri' option is required in nonWSDL mode")

// PanicError carries a value recovered from a panicking service call.
type PanicError struct {
	Operation string
	Value     any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.Value)
}

// Engine is an RPC/encoded SOAP engine dispatching to Go functions or to the
// methods of one bound type.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	wsdl   *WSDL
	ns     string

	functions map[string]reflect.Value
	class     *Class
	object    reflect.Value
	session   reflect.Value

	typeNames map[reflect.Type]string

	lastRequest  string
	lastResponse string
	lastVersion  envelope.Version
}

// New builds an engine from cfg. A configured WSDL is loaded here, so an
// unreachable document fails the build rather than the option assignment.
func New(cfg Config) (*Engine, error) {
	if !cfg.Version.Valid() {
		cfg.Version = envelope.SOAP12
	}
	e := &Engine{
		cfg:         cfg,
		logger:      cfg.Logger,
		ns:          cfg.URI,
		functions:   make(map[string]reflect.Value),
		typeNames:   make(map[reflect.Type]string, len(cfg.Classmap)),
		lastVersion: cfg.Version,
	}
	if e.logger == nil {
		e.logger = logging.Nop()
	}
	for name, t := range cfg.Classmap {
		e.typeNames[indirectType(t)] = name
	}

	if cfg.WSDL != "" {
		loader := &Loader{Client: cfg.HTTPClient, CacheDir: cfg.CacheDir, Mode: cfg.CacheMode, Logger: e.logger}
		w, err := loader.Load(cfg.WSDL)
		if err != nil {
			return nil, fmt.Errorf("SOAP-ERROR: Parsing WSDL: %w", err)
		}
		e.wsdl = w
		if e.ns == "" {
			e.ns = w.TargetNamespace
		}
	} else if e.ns == "" {
		return nil, ErrURIRequired
	}

	return e, nil
}

// AddFunction exposes fn under the operation name name.
func (e *Engine) AddFunction(name string, fn reflect.Value) error {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return fmt.Errorf("function %q is not callable", name)
	}
	e.functions[name] = fn
	return nil
}

// SetClass binds a type; instances are created per request unless session
// persistence is configured.
func (e *Engine) SetClass(c Class) error {
	if c.Type == nil || indirectType(c.Type).Kind() != reflect.Struct {
		return fmt.Errorf("class type must be a struct, got %v", c.Type)
	}
	if c.New.IsValid() && c.New.Kind() != reflect.Func {
		return fmt.Errorf("constructor of %s is not a func", c.Type)
	}
	c.Type = indirectType(c.Type)
	e.class = &c
	e.session = reflect.Value{}
	return nil
}

// SetObject binds a live value. Struct values are copied behind a pointer so
// pointer-receiver methods are reachable.
func (e *Engine) SetObject(obj reflect.Value) error {
	switch {
	case !obj.IsValid():
		return errors.New("object is nil")
	case obj.Kind() == reflect.Pointer && !obj.IsNil():
		e.object = obj
	case obj.Kind() == reflect.Struct:
		p := reflect.New(obj.Type())
		p.Elem().Set(obj)
		e.object = p
	default:
		return fmt.Errorf("object must be a struct or pointer, got %s", obj.Kind())
	}
	return nil
}

// LastRequest returns the request text of the most recent Handle call.
func (e *Engine) LastRequest() string { return e.lastRequest }

// LastResponse returns the response or fault text of the most recent call.
func (e *Engine) LastResponse() string { return e.lastResponse }

// WSDL returns the loaded service description, if any.
func (e *Engine) WSDL() *WSDL { return e.wsdl }

// Handle processes one request envelope. Protocol-level problems are answered
// with a rendered fault and a nil error. An error is returned only when the
// invoked service failed; the caller decides how to expose it and renders it
// with Fault.
func (e *Engine) Handle(request string) (string, error) {
	e.lastRequest = request
	e.lastVersion = e.cfg.Version

	resp, err := e.handle(request)
	if err != nil {
		e.lastResponse = ""
		return "", err
	}
	e.lastResponse = resp
	return resp, nil
}

// Fault renders f in the version of the last request.
func (e *Engine) Fault(f *envelope.Fault) string {
	e.lastResponse = envelope.RenderFault(e.lastVersion, f, e.cfg.Encoding)
	return e.lastResponse
}

func (e *Engine) fault(code, message string) string {
	return envelope.RenderFault(e.lastVersion, &envelope.Fault{Code: code, Message: message}, e.cfg.Encoding)
}

func (e *Engine) handle(request string) (string, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromString(request); err != nil {
		return e.fault(envelope.CodeSender, "Bad Request"), nil
	}

	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return e.fault(envelope.CodeSender, "Bad Request"), nil
	}
	version, ok := envelope.DetectVersion(root)
	if !ok {
		return e.fault(envelope.CodeVersionMismatch, "Wrong Version"), nil
	}
	e.lastVersion = version

	if header := childElement(root, "Header"); header != nil {
		if name := e.notUnderstood(header, version); name != "" {
			e.logger.Debug("header not understood", "header", name)
			return e.fault(envelope.CodeMustUnderstand, "Header not understood"), nil
		}
	}

	body := childElement(root, "Body")
	if body == nil {
		return e.fault(envelope.CodeSender, "Body not found"), nil
	}
	calls := body.ChildElements()
	if len(calls) == 0 {
		return e.fault(envelope.CodeSender, "Operation not specified"), nil
	}
	call := calls[0]

	op, ok := e.lookup(call.Tag)
	if !ok || (e.wsdl != nil && !e.wsdl.HasOperation(call.Tag)) {
		return e.fault(envelope.CodeSender, fmt.Sprintf("Function (%q) is not a valid method for this service", call.Tag)), nil
	}

	fn, err := e.bind(op)
	if err != nil {
		return "", err
	}

	args, fault := e.decodeArgs(op.name, fn.Type(), call)
	if fault != nil {
		return envelope.RenderFault(version, fault, e.cfg.Encoding), nil
	}

	e.logger.Debug("invoking operation", "operation", op.name, "args", len(args))
	results, err := invoke(op.name, fn, args)
	if err != nil {
		return "", err
	}

	return e.respond(version, op, results)
}

// notUnderstood returns the name of the first mandatory header block aimed
// at this node, or "".
func (e *Engine) notUnderstood(header *etree.Element, version envelope.Version) string {
	targetAttr, next := "actor", envelope.NextActor11
	if version == envelope.SOAP12 {
		targetAttr, next = "role", envelope.NextRole12
	}
	for _, block := range header.ChildElements() {
		mu := attrNS(block, version.Namespace(), "mustUnderstand")
		if mu != "1" && mu != "true" {
			continue
		}
		target := attrNS(block, version.Namespace(), targetAttr)
		if target == "" || target == next || (e.cfg.Actor != "" && target == e.cfg.Actor) {
			return block.Tag
		}
	}
	return ""
}

func (e *Engine) respond(version envelope.Version, op operation, results []reflect.Value) (string, error) {
	envPrefix, _ := version.Prefixes()
	ns := e.ns
	if op.method && e.class != nil && e.class.Namespace != "" {
		ns = e.class.Namespace
	}

	doc, body := envelope.NewDocument(version, ns, true)
	wrapper := body.CreateElement("ns1:" + op.name + "Response")
	if version == envelope.SOAP12 {
		wrapper.CreateAttr(envPrefix+":encodingStyle", envelope.SOAP12EncodingNamespace)
	}
	for i, r := range results {
		name := "return"
		if i > 0 {
			name = fmt.Sprintf("return%d", i)
		}
		e.encodeValue(wrapper, name, r, version)
	}

	out, err := envelope.Serialize(doc, e.cfg.Encoding)
	if err != nil {
		e.logger.Warn("response encoding failed", "operation", op.name, "error", err)
		return envelope.RenderFault(version, &envelope.Fault{Code: envelope.CodeReceiver, Message: err.Error()}, ""), nil
	}
	return out, nil
}

func childElement(parent *etree.Element, local string) *etree.Element {
	for _, c := range parent.ChildElements() {
		if c.Tag == local {
			return c
		}
	}
	return nil
}

func attrNS(el *etree.Element, ns, local string) string {
	for _, a := range el.Attr {
		if a.Key == local && a.NamespaceURI() == ns {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
