package server

import (
	"context"
	"net/http"
	"time"

	"voice-agent/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// RequestIDHeader 在请求和响应中携带请求 id。
const RequestIDHeader = "X-Request-Id"

type ctxKey struct{}

func componentLog() *logger.LogEntry {
	return logger.Named("server")
}

// requestID 沿用客户端传入的 id，否则生成一个 uuid。
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestIDFrom 返回 ctx 上的请求 id。
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func logRequest(r *http.Request) *logger.LogEntry {
	return componentLog().WithField("request_id", RequestIDFrom(r.Context()))
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logRequest(r).WithFields(logger.Fields{
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Infof("%s %s", r.Method, r.URL.Path)
	})
}
