package observability

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pagelift/api/internal/platform/requestctx"
)

const cloudTraceHeader = "X-Cloud-Trace-Context"

var tracer = otel.Tracer("github.com/pagelift/api/internal/platform/observability")

// TraceMiddleware links incoming requests to Cloud Trace. It honours an
// existing X-Cloud-Trace-Context header, opens a server span, and stores the
// trace metadata on the request context for log correlation.
func TraceMiddleware(projectID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if remote, ok := remoteSpanContext(r.Header.Get(cloudTraceHeader)); ok {
				ctx = trace.ContextWithRemoteSpanContext(ctx, remote)
			}

			ctx, span := tracer.Start(ctx, spanNameFromRequest(r), trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
			span.SetAttributes(requestSpanAttributes(r)...)

			spanCtx := span.SpanContext()
			info := requestctx.TraceInfo{
				TraceID:   spanCtx.TraceID().String(),
				SpanID:    spanCtx.SpanID().String(),
				Sampled:   spanCtx.IsSampled(),
				ProjectID: projectID,
			}

			ctx = requestctx.WithTrace(ctx, info)
			r = r.WithContext(ctx)

			if formatted := formatCloudTraceHeader(info); formatted != "" {
				w.Header().Set(cloudTraceHeader, formatted)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// remoteSpanContext parses the TRACE_ID/SPAN_ID;o=OPTIONS header format.
func remoteSpanContext(header string) (trace.SpanContext, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return trace.SpanContext{}, false
	}

	parts := strings.SplitN(header, "/", 2)
	if len(parts) != 2 {
		return trace.SpanContext{}, false
	}

	traceIDHex := strings.TrimSpace(parts[0])
	if len(traceIDHex) != 32 {
		return trace.SpanContext{}, false
	}
	traceID, err := trace.TraceIDFromHex(traceIDHex)
	if err != nil {
		return trace.SpanContext{}, false
	}

	spanPart, optionPart := parts[1], ""
	if idx := strings.Index(spanPart, ";"); idx >= 0 {
		spanPart, optionPart = spanPart[:idx], spanPart[idx+1:]
	}

	spanID, ok := parseSpanID(spanPart)
	if !ok {
		return trace.SpanContext{}, false
	}

	var flags trace.TraceFlags
	if parseTraceOptions(optionPart) {
		flags = trace.FlagsSampled
	}

	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	}), true
}

// parseSpanID accepts both the hex form and the decimal form Cloud Load
// Balancers emit.
func parseSpanID(value string) (trace.SpanID, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return trace.SpanID{}, false
	}

	if len(value) <= 16 && isHex(value) {
		padded := strings.Repeat("0", 16-len(value)) + value
		if spanID, err := trace.SpanIDFromHex(padded); err == nil {
			return spanID, true
		}
	}

	if num, err := strconv.ParseUint(value, 10, 64); err == nil {
		var spanID trace.SpanID
		binary.BigEndian.PutUint64(spanID[:], num)
		if spanID.IsValid() {
			return spanID, true
		}
	}

	return trace.SpanID{}, false
}

func parseTraceOptions(optionPart string) bool {
	for _, segment := range strings.Split(optionPart, ";") {
		segment = strings.TrimSpace(segment)
		if strings.HasPrefix(segment, "o=") {
			return segment == "o=1"
		}
	}
	return false
}

func isHex(value string) bool {
	if value == "" {
		return false
	}
	_, err := hex.DecodeString(value)
	return err == nil
}

func formatCloudTraceHeader(info requestctx.TraceInfo) string {
	if info.TraceID == "" || info.SpanID == "" {
		return ""
	}
	option := "0"
	if info.Sampled {
		option = "1"
	}
	return fmt.Sprintf("%s/%s;o=%s", info.TraceID, info.SpanID, option)
}

func spanNameFromRequest(r *http.Request) string {
	if r == nil {
		return "unknown"
	}
	path := r.URL.Path
	if path == "" {
		path = "/"
	}
	return r.Method + " " + path
}

func requestSpanAttributes(r *http.Request) []attribute.KeyValue {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", r.Method),
		attribute.String("url.scheme", scheme),
	}
	if r.URL != nil {
		if path := r.URL.Path; path != "" {
			attrs = append(attrs, attribute.String("url.path", path))
		}
		if target := r.URL.RequestURI(); target != "" {
			attrs = append(attrs, attribute.String("url.full", target))
		}
	}
	if host := r.Host; host != "" {
		attrs = append(attrs, attribute.String("server.address", host))
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, attribute.String("user_agent.original", ua))
	}
	return attrs
}
