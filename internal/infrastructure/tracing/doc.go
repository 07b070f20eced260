/*
Package tracing carries a trace ID from devtools clients through the HTTP
API and into log lines.

A request may carry X-Trace-ID and X-Span-ID. The middleware continues that
trace, or starts one, and echoes both IDs in the response. Finished spans
are logged by a background collector.

# Usage

	tracer := tracing.New("devtools", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// Client side
	tracing.Inject(ctx, req.Header)

	// Handler side
	logger.Error("Request failed", tracing.Field(c.Request.Context()), zap.Error(err))
*/
package tracing
