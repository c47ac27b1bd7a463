package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dirt-rain/code-editor-agent/pkg/log"
)

// WithTracing wraps a tool handler with OpenTelemetry tracing and structured
// logging. Each call gets a span named after the tool; failed calls are
// recorded on the span and logged with its trace ID.
func WithTracing[In, Out any](tracer trace.Tracer, handler mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		toolName := req.Params.Name

		ctx, span := tracer.Start(ctx, toolName, trace.WithAttributes(
			attribute.String("mcp.tool", toolName),
		))
		defer span.End()

		logger := log.WithContext(ctx)

		logger.DebugContext(ctx, "handling tool call",
			slog.String("name", toolName),
			slog.Any("args", in),
		)

		result, out, err := handler(ctx, req, in)

		switch {
		case err != nil:
			logger.ErrorContext(ctx, "tool call failed",
				slog.String("name", toolName),
				slog.Any("error", err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

		case result != nil && result.IsError:
			logger.WarnContext(ctx, "tool call returned an error result",
				slog.String("name", toolName),
			)
			span.SetStatus(codes.Error, "error result")

		default:
			logger.DebugContext(ctx, "tool call completed successfully",
				slog.String("name", toolName),
			)
		}

		return result, out, err
	}
}
