package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bravo68web/gitolfs/pkg/logger"
)

// LoggerConfig holds configuration for the logging middleware
type LoggerConfig struct {
	// Logger is the logger instance to use
	Logger *logger.Logger

	// SkipPaths are paths that should not be logged
	SkipPaths []string
}

// DefaultLoggerConfig returns a default middleware configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Logger:    nil, // Will use global logger
		SkipPaths: []string{"/healthz", "/readyz"},
	}
}

// LoggerMiddleware returns a Gin middleware that logs requests with zap
func LoggerMiddleware() gin.HandlerFunc {
	return LoggerMiddlewareWithConfig(DefaultLoggerConfig())
}

// LoggerMiddlewareWithConfig returns a logging middleware with custom configuration
func LoggerMiddlewareWithConfig(cfg *LoggerConfig) gin.HandlerFunc {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log := cfg.Logger
		if log == nil {
			log = logger.Get()
		}

		fields := []logger.Field{
			logger.Method(c.Request.Method),
			logger.Path(path),
			logger.StatusCode(c.Writer.Status()),
			logger.Latency(time.Since(start)),
			logger.ClientIP(c.ClientIP()),
		}
		if id := GetRequestID(c); id != "" {
			fields = append(fields, logger.RequestID(id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			log.Error("request completed", fields...)
		case status >= 400:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}
