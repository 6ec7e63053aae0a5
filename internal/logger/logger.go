package logger

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iurnickita/eventbilling/internal/logger/config"
)

// ServiceName добавляется в каждую запись лога.
const ServiceName = "eventbilling"

func NewZapLog(cfg config.Config) (*zap.Logger, error) {
	zapcfg, err := newZapConfig(cfg)
	if err != nil {
		return nil, err
	}
	return zapcfg.Build()
}

// newZapConfig - production-конфигурация с уровнем из настроек.
func newZapConfig(cfg config.Config) (zap.Config, error) {
	lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return zap.Config{}, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}

	zapcfg := zap.NewProductionConfig()
	zapcfg.Level = lvl
	zapcfg.InitialFields = map[string]any{"service": ServiceName}
	// время в логах читается человеком
	zapcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcfg, nil
}

// middleware-логер для входящих HTTP-запросов.
func RequestLogMdlw(zaplog *zap.Logger) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := middleware.GetReqID(r.Context())

			zaplog.Info("got incoming HTTP request",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
			)

			wl := NewResponseWriterLogger(w)

			handlerStart := time.Now()
			h.ServeHTTP(wl, r)
			handlerDuration := time.Since(handlerStart)

			zaplog.Info("send HTTP response",
				zap.String("request_id", requestID),
				zap.String("code", strconv.Itoa(wl.statusCode)),
				zap.String("length", strconv.Itoa(wl.length)),
				zap.String("duration", handlerDuration.String()),
			)
		})
	}
}

type responseWriterLogger struct {
	http.ResponseWriter
	statusCode int
	length     int
}

func NewResponseWriterLogger(w http.ResponseWriter) *responseWriterLogger {
	return &responseWriterLogger{w, http.StatusOK, 0}
}

func (wl *responseWriterLogger) WriteHeader(code int) {
	wl.statusCode = code
	wl.ResponseWriter.WriteHeader(code)
}

func (wl *responseWriterLogger) Write(b []byte) (n int, err error) {
	n, err = wl.ResponseWriter.Write(b)
	wl.length += n
	return
}
