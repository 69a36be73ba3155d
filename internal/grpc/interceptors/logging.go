package interceptors

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"jobleads/internal/logging"
	"jobleads/pkg/utils"
)

// healthMethodPrefix marks health probes, which are logged at debug level
const healthMethodPrefix = "/grpc.health.v1.Health/"

// codeOf returns the gRPC status code carried by err
func codeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Internal
}

func logCompletion(logger logging.Logger, method, requestID string, started time.Time, err error, kind string) {
	fields := map[string]interface{}{
		"request_id":      requestID,
		"method":          method,
		"processing_time": time.Since(started).String(),
		"status_code":     codeOf(err).String(),
		"type":            kind,
	}

	switch {
	case err != nil:
		fields["error"] = err.Error()
		logger.Error("gRPC request failed", fields)
	case strings.HasPrefix(method, healthMethodPrefix):
		logger.Debug("gRPC request completed", fields)
	default:
		logger.Info("gRPC request completed", fields)
	}
}

// LoggingInterceptor returns a gRPC unary interceptor that logs each call
func LoggingInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		startTime := time.Now()
		requestID := utils.GenerateRequestID()

		resp, err := handler(ctx, req)

		logCompletion(logger, info.FullMethod, requestID, startTime, err, "grpc_request_complete")
		return resp, err
	}
}

// StreamLoggingInterceptor returns a gRPC streaming interceptor that logs
// each stream when it ends
func StreamLoggingInterceptor(logger logging.Logger) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		startTime := time.Now()
		requestID := utils.GenerateRequestID()

		err := handler(srv, ss)

		logCompletion(logger, info.FullMethod, requestID, startTime, err, "grpc_stream_complete")
		return err
	}
}
