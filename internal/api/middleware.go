package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// JSONBodyKey is the gin context key under which JSONBody stores a validated
// request body as json.RawMessage.
const JSONBodyKey = "api.jsonBody"

// Recovery returns a middleware that recovers from panics, logs the stack trace,
// and returns a 500 to the client so the server continues serving.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(c.Request.Context(), "panic recovered",
					"panic", r,
					"stack", string(debug.Stack()),
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("internal server error"))
			}
		}()
		c.Next()
	}
}

// Tracing returns a middleware that starts an OTEL server span per request.
// With no provider registered the global no-op tracer is used.
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// RequestLogger returns a middleware that emits a structured slog line for
// every request with method, path, status, and latency.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// JSONBody parses JSON request bodies up front for every request, matched or
// not. Only application/json (and +json) bodies are inspected. Oversized
// bodies get 413, malformed or non-object/array bodies get 400. A valid body
// is stored under JSONBodyKey and the request body is rewound for handlers.
func JSONBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody || !isJSONContentType(c.ContentType()) {
			c.Next()
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorBody("request entity too large"))
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody("failed to read request body"))
			return
		}

		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 {
			if !json.Valid(trimmed) {
				c.AbortWithStatusJSON(http.StatusBadRequest, errorBody("malformed JSON body"))
				return
			}
			if trimmed[0] != '{' && trimmed[0] != '[' {
				c.AbortWithStatusJSON(http.StatusBadRequest, errorBody("JSON body must be an object or array"))
				return
			}
			c.Set(JSONBodyKey, json.RawMessage(trimmed))
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

func isJSONContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return ct == "application/json" || (strings.HasPrefix(ct, "application/") && strings.HasSuffix(ct, "+json"))
}

func errorBody(msg string) gin.H {
	return gin.H{
		"status": "error",
		"error":  msg,
	}
}
