package core

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Tracing assigns request/trace identifiers, binds a request-scoped logger
// into the context, and annotates the response with the identifiers and the
// elapsed time. Identifiers supplied by the caller are echoed back verbatim.
func Tracing(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tr := NewRequestTrace(c.GetHeader(HeaderRequestID), c.GetHeader(HeaderTraceID))

		reqLog := log.With().
			Str("request_id", tr.RequestID).
			Str("trace_id", tr.TraceID).
			Logger()
		ctx := WithTrace(c.Request.Context(), tr)
		c.Request = c.Request.WithContext(reqLog.WithContext(ctx))

		c.Header(HeaderRequestID, tr.RequestID)
		c.Header(HeaderTraceID, tr.TraceID)

		start := time.Now()
		c.Writer = &timingWriter{ResponseWriter: c.Writer, start: start}

		reqLog.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request started")

		c.Next()

		status := c.Writer.Status()
		event := reqLog.Info()
		if status >= http.StatusInternalServerError {
			event = reqLog.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("request completed")
	}
}

// timingWriter wraps gin.ResponseWriter to inject the X-Process-Time header
// just before the first byte is written, so the measurement also covers
// responses produced on error paths.
type timingWriter struct {
	gin.ResponseWriter
	start    time.Time
	injected bool
}

func (w *timingWriter) inject() {
	if w.injected {
		return
	}
	w.injected = true
	w.Header().Set(HeaderProcessTime, fmt.Sprintf("%.6f", time.Since(w.start).Seconds()))
}

func (w *timingWriter) WriteHeader(code int) {
	w.inject()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingWriter) Write(b []byte) (int, error) {
	w.inject()
	return w.ResponseWriter.Write(b)
}

func (w *timingWriter) WriteString(s string) (int, error) {
	w.inject()
	return w.ResponseWriter.WriteString(s)
}

func (w *timingWriter) WriteHeaderNow() {
	w.inject()
	w.ResponseWriter.WriteHeaderNow()
}

// FailureBoundary converts panics escaping the handler chain into a fixed
// 500 plain-text response. The panic value is only echoed to the client in
// the development environment; everywhere else the body is a generic string.
func FailureBoundary(cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				zerolog.Ctx(c.Request.Context()).Error().
					Interface("error", rec).
					Bytes("stack", debug.Stack()).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Msg("unhandled failure")

				body := "Internal Server Error"
				if cfg.IsDevelopment() {
					body = fmt.Sprintf("%v", rec)
				}
				c.Abort()
				c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte(body))
			}
		}()
		c.Next()
	}
}

// CORS sets cross-origin headers for allowed origins and answers preflight
// requests. A single "*" entry allows any origin.
func CORS(cfg Config) gin.HandlerFunc {
	allowAll := false
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
			continue
		}
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if allowAll {
			return true
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && isAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+HeaderRequestID+", "+HeaderTraceID)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
