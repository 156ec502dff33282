package middlewares

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)

		// accept the caller's id only when it looks sane
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		ctx.Writer.Header().Set(requestIDHeader, id)

		ctx.Set(CtxRequestID, id)

		ctx.Next()

	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		route := ctx.FullPath()
		if route == "" {
			route = ctx.Request.URL.Path // fallback (e.g. 404)
		}

		method := ctx.Request.Method

		ctx.Next()

		lat := time.Since(start)
		status := ctx.Writer.Status()

		logAttrs := []any{
			"method", method,
			"route", route,
			"status", status,
			"latency_ms", lat.Milliseconds(),
			"request_id", ctx.GetString(CtxRequestID),
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		// ctx.Request carries the actor set by RequireAuth
		log.Log(ctx.Request.Context(), level, "http_request", logAttrs...)
	}
}

// ErrorLogger writes every error a handler attached with ctx.Error. Handlers attach the
// underlying cause and send the client a sanitized message.
func ErrorLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		for _, e := range ctx.Errors {
			log.ErrorContext(ctx.Request.Context(), "request error",
				"err", e.Err,
				"method", ctx.Request.Method,
				"route", ctx.FullPath(),
				"status", ctx.Writer.Status(),
				"request_id", ctx.GetString(CtxRequestID),
			)
		}
	}
}
