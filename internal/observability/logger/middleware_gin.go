package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/metrolab/internal/actorcontext"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps the last handler error to a type and code pair.
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware stamps request metadata on the context and writes one
// http_request line per request once the handlers have run.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFrom(c)
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)

		c.Request = c.Request.WithContext(actorcontext.WithRequestMeta(c.Request.Context(), actorcontext.RequestMeta{
			RequestID: requestID,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		fields = append(fields, resourceFields(c, route)...)

		if lastErr := c.Errors.Last(); lastErr != nil {
			errorType, errorCode := "error", ""
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields, zap.String("error_type", errorType), zap.String("error_code", errorCode))
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		if ce := FromContext(c.Request.Context()).Check(requestLevel(route, status), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

// resourceFields names the path id after the resource the route addresses.
func resourceFields(c *gin.Context, route string) []zap.Field {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return nil
	}
	if strings.Contains(route, "/equipment/") {
		return []zap.Field{zap.String("equipment_id", id)}
	}
	if strings.Contains(route, "/verifications/") {
		return []zap.Field{zap.String("verification_id", id)}
	}
	return []zap.Field{zap.String("resource_id", id)}
}

func requestIDFrom(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(requestIDHeader)); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.GetString("request_id")); id != "" {
		return id
	}
	return uuid.NewString()
}

// requestLevel keeps probes and scrapes out of the info stream.
func requestLevel(route string, status int) zapcore.Level {
	switch {
	case route == "/health" || route == "/metrics":
		return zap.DebugLevel
	case status >= http.StatusInternalServerError:
		return zap.ErrorLevel
	case status == http.StatusTooManyRequests || status == http.StatusConflict:
		return zap.WarnLevel
	default:
		return zap.InfoLevel
	}
}
