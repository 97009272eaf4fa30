package telemetry

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

// HeaderTraceID carries the trace ID back to the caller.
const HeaderTraceID = "X-Trace-ID"

// Middleware returns the otelgin tracing middleware followed by one that
// echoes the trace ID in the response headers.
func Middleware(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		otelgin.Middleware(serviceName),
		traceIDHeader,
	}
}

func traceIDHeader(c *gin.Context) {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		c.Header(HeaderTraceID, sc.TraceID().String())
	}

	c.Next()
}

// TraceID returns the trace ID of the request's span, or "" if untraced.
func TraceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return ""
}
