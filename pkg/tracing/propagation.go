// Package tracing reads W3C Trace Context headers so that soapd log lines
// can be correlated with the caller's trace.
//
// soapd does not create or export spans. It only carries the incoming
// traceparent through the request context:
//
//	ctx := tracing.Extract(r.Context(), r.Header)
//	traceID := tracing.TraceIDFromContext(ctx)
package tracing

import (
	"context"
	"encoding/hex"
	"net/http"
	"strings"
)

// TraceparentHeader is the W3C Trace Context traceparent header name.
const TraceparentHeader = "traceparent"

const flagSampled = 0x01

// SpanContext identifies the caller's span.
type SpanContext struct {
	TraceID string
	SpanID  string
	Sampled bool
}

// IsValid reports whether sc carries a trace and span ID.
func (sc SpanContext) IsValid() bool {
	return sc.TraceID != "" && sc.SpanID != ""
}

// String formats sc as a traceparent value.
func (sc SpanContext) String() string {
	flags := "00"
	if sc.Sampled {
		flags = "01"
	}
	return "00-" + sc.TraceID + "-" + sc.SpanID + "-" + flags
}

type contextKey struct{}

// Extract returns ctx carrying the span context of a valid traceparent
// header. Without one, ctx is returned unchanged.
func Extract(ctx context.Context, headers http.Header) context.Context {
	sc, ok := Parse(headers.Get(TraceparentHeader))
	if !ok {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, sc)
}

// SpanContextFromContext returns the span context stored by Extract.
func SpanContextFromContext(ctx context.Context) SpanContext {
	sc, _ := ctx.Value(contextKey{}).(SpanContext)
	return sc
}

// TraceIDFromContext returns the trace ID stored by Extract, or "".
func TraceIDFromContext(ctx context.Context) string {
	return SpanContextFromContext(ctx).TraceID
}

// Parse parses a traceparent value of the form
// {version}-{trace-id}-{parent-id}-{flags}, e.g.
// 00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01.
func Parse(traceparent string) (SpanContext, bool) {
	parts := strings.Split(strings.TrimSpace(traceparent), "-")
	if len(parts) != 4 {
		return SpanContext{}, false
	}
	version, traceID, spanID, flags := parts[0], parts[1], parts[2], parts[3]

	// Unknown versions are accepted as long as the layout matches.
	if len(version) != 2 || !isHex(version) || version == "ff" {
		return SpanContext{}, false
	}
	if len(traceID) != 32 || !isHex(traceID) || isZero(traceID) {
		return SpanContext{}, false
	}
	if len(spanID) != 16 || !isHex(spanID) || isZero(spanID) {
		return SpanContext{}, false
	}
	b, err := hex.DecodeString(flags)
	if err != nil || len(b) != 1 {
		return SpanContext{}, false
	}
	return SpanContext{
		TraceID: strings.ToLower(traceID),
		SpanID:  strings.ToLower(spanID),
		Sampled: b[0]&flagSampled != 0,
	}, true
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

func isZero(s string) bool {
	return strings.Trim(s, "0") == ""
}
