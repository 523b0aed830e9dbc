/*
Package tracing provides lightweight request tracing.

Each HTTP request gets a span; handlers open child spans around transpile,
run and store calls. Finished spans are logged asynchronously through zap.

# Usage

	tracer := tracing.New("playground", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	err := tracer.Trace(ctx, "store.load", func(ctx context.Context, span *tracing.Span) error {
		span.SetTag("session", session)
		return store.Load(ctx, session)
	})

# Trace Format

Traces propagate through the X-Trace-ID and X-Span-ID headers.
*/
package tracing
