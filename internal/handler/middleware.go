package handler

import (
	"crypto/subtle"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"signal-gateway/internal/domain"
	"signal-gateway/internal/metrics"
	"signal-gateway/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const authHeader = "X-Auth-Token"

// AuthToken requires the X-Auth-Token header to equal token exactly. An
// empty configured token rejects every request.
func AuthToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(authHeader)
		if provided == "" {
			writeError(c, fmt.Errorf("%w: missing %s header", domain.ErrUnauthorized, authHeader))
			return
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			writeError(c, fmt.Errorf("%w: invalid auth token", domain.ErrUnauthorized))
			return
		}
		c.Next()
	}
}

// RateLimit rejects requests arriving inside the limiter's spacing window.
func RateLimit(l *ratelimit.Limiter, now func() time.Time, rec *metrics.Recorder) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		t := now()
		if !l.TryAccept(t) {
			rec.RecordRateLimited()
			wait := l.RetryAfter(t)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(c, fmt.Errorf("%w: at most one request per %s", domain.ErrRateLimited, l.Interval()))
			return
		}
		c.Next()
	}
}

func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// MethodNotAllowed answers requests whose path exists under another method.
func MethodNotAllowed(c *gin.Context) {
	abortWithError(c, http.StatusMethodNotAllowed, "method_not_allowed",
		c.Request.Method+" is not supported on "+c.Request.URL.Path)
}

// Recovery converts panics into a 500 with the standard error body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		abortWithError(c, http.StatusInternalServerError, "internal_error",
			"internal server error: "+strings.TrimSpace(fmt.Sprint(recovered)))
	})
}

// RequestLogger writes one structured line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		evt := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			evt = log.Error()
		case status >= http.StatusBadRequest:
			evt = log.Warn()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}
