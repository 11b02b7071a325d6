package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/getmockd/soapd/pkg/httputil"
	"github.com/getmockd/soapd/pkg/logging"
	"github.com/getmockd/soapd/pkg/metrics"
	"github.com/getmockd/soapd/pkg/soap"
	"github.com/getmockd/soapd/pkg/soap/envelope"
	"github.com/getmockd/soapd/pkg/util"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 10 << 20

// ServerFactory builds a configured soap.Server for one request. The context
// carries the request-scoped logger.
type ServerFactory func(ctx context.Context) (*soap.Server, error)

// Handler serves SOAP requests over HTTP. Each request gets its own
// soap.Server from the factory.
type Handler struct {
	factory  ServerFactory
	wsdlPath string
	maxBody  int64
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithWSDLFile serves the file at path on GET ?wsdl.
func WithWSDLFile(path string) HandlerOption {
	return func(h *Handler) { h.wsdlPath = path }
}

// WithMaxBodyBytes caps request bodies at n bytes.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// WithHandlerLogger sets the fallback logger used when the request context
// carries none.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics records response status and in-flight requests in m.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler creates a SOAP HTTP handler.
func NewHandler(factory ServerFactory, opts ...HandlerOption) *Handler {
	h := &Handler{
		factory: factory,
		maxBody: DefaultMaxBodyBytes,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && wantsWSDL(r) {
		h.serveWSDL(w, r)
		return
	}
	if r.Method != http.MethodPost {
		h.metrics.ObserveResponse(http.StatusMethodNotAllowed)
		httputil.WriteMethodNotAllowed(w, "GET, POST")
		return
	}

	defer h.metrics.TrackInFlight()()
	log := logging.FromContext(r.Context(), h.logger)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		status := http.StatusBadRequest
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		log.Warn("failed to read request body", "error", err)
		h.metrics.ObserveResponse(status)
		httputil.WriteError(w, status, "bad_request", "Failed to read request body")
		return
	}

	srv, err := h.factory(r.Context())
	if err != nil {
		log.Error("failed to build soap server", "error", err)
		h.metrics.ObserveResponse(http.StatusInternalServerError)
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "Service unavailable")
		return
	}
	srv.SetReturnResponse(true)

	resp, err := srv.Handle(string(body))
	switch {
	case errors.Is(err, soap.ErrInvalidXML):
		log.Info("rejected soap request", "error", err)
		h.writeEnvelope(w, http.StatusBadRequest, srv.LastResponse(), srv.Encoding())
	case err != nil:
		log.Error("soap server failed", "error", err,
			"soapAction", soapAction(r), "request", util.TruncateBody(string(body), 0))
		f := srv.Fault(soap.TextCause("Internal Error"), soap.CodeReceiver)
		h.writeEnvelope(w, http.StatusInternalServerError,
			envelope.RenderFault(srv.SOAPVersion(), f, srv.Encoding()), srv.Encoding())
	case srv.LastFault() != nil:
		f := srv.LastFault()
		log.Info("soap fault", "code", f.Code, "message", f.Message, "soapAction", soapAction(r))
		h.writeEnvelope(w, http.StatusInternalServerError, resp, srv.Encoding())
	default:
		h.writeEnvelope(w, http.StatusOK, resp, srv.Encoding())
	}
}

func (h *Handler) serveWSDL(w http.ResponseWriter, r *http.Request) {
	if h.wsdlPath == "" {
		h.metrics.ObserveResponse(http.StatusNotFound)
		httputil.WriteError(w, http.StatusNotFound, "not_found", "WSDL not available")
		return
	}
	path, ok := util.SafeFilePathAllowAbsolute(h.wsdlPath)
	if !ok {
		h.metrics.ObserveResponse(http.StatusNotFound)
		httputil.WriteError(w, http.StatusNotFound, "not_found", "WSDL not available")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logging.FromContext(r.Context(), h.logger).Error("failed to read WSDL", "path", path, "error", err)
		h.metrics.ObserveResponse(http.StatusNotFound)
		httputil.WriteError(w, http.StatusNotFound, "not_found", "WSDL not available")
		return
	}
	h.metrics.ObserveResponse(http.StatusOK)
	httputil.WriteXML(w, http.StatusOK, "", string(data))
}

func (h *Handler) writeEnvelope(w http.ResponseWriter, status int, body, charset string) {
	h.metrics.ObserveResponse(status)
	httputil.WriteXML(w, status, contentType(envelope.SniffVersion([]byte(body)), charset), body)
}

// contentType returns the media type for v with the response charset.
func contentType(v envelope.Version, charset string) string {
	if charset == "" {
		return v.ContentType()
	}
	media, _, _ := strings.Cut(v.ContentType(), ";")
	return fmt.Sprintf("%s; charset=%s", media, strings.ToLower(charset))
}

// wantsWSDL reports whether the query carries a wsdl key, in any case.
func wantsWSDL(r *http.Request) bool {
	for key := range r.URL.Query() {
		if strings.EqualFold(key, "wsdl") {
			return true
		}
	}
	return false
}

// soapAction returns the SOAPAction header, or the action parameter of a
// SOAP 1.2 content type.
func soapAction(r *http.Request) string {
	if action := strings.Trim(r.Header.Get("SOAPAction"), `"`); action != "" {
		return action
	}
	for part := range strings.SplitSeq(r.Header.Get("Content-Type"), ";") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(part), "action="); ok {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}
