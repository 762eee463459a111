package api

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// accessWriter records the status and byte count of a reply and collects
// extra log attributes that handlers attach while serving it.
type accessWriter struct {
	middleware.WrapResponseWriter
	attrs []any
}

func newAccessWriter(w http.ResponseWriter, r *http.Request) *accessWriter {
	return &accessWriter{WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor)}
}

// Annotate adds key=value to the access log line of this request.
func (w *accessWriter) Annotate(key string, value any) {
	w.attrs = append(w.attrs, key, value)
}

// Hijack lets the chat socket take over the connection.
func (w *accessWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.Unwrap().(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// annotate is a no-op when w is not wrapped by accessLogMiddleware.
func annotate(w http.ResponseWriter, key string, value any) {
	if aw, ok := w.(interface{ Annotate(string, any) }); ok {
		aw.Annotate(key, value)
	}
}

// accessLogMiddleware writes one line per API call. A chat socket logs
// once, when the session ends.
func accessLogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			aw := newAccessWriter(w, r)

			next.ServeHTTP(aw, r)

			status := aw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := append([]any{
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"route", routePattern(r),
				"path", r.URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", r.RemoteAddr,
			}, aw.attrs...)

			if status == http.StatusSwitchingProtocols {
				logger.Info("chat socket closed", attrs...)
				return
			}
			attrs = append(attrs, "bytes", aw.BytesWritten())
			switch {
			case status >= http.StatusInternalServerError:
				logger.Error("api call failed", attrs...)
			case status >= http.StatusBadRequest:
				logger.Warn("api call rejected", attrs...)
			default:
				logger.Info("api call served", attrs...)
			}
		})
	}
}

// panicRecoveryMiddleware turns a handler panic into a 500 reply unless
// the handler already started writing.
func panicRecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				logger.Error("handler panicked",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"route", routePattern(r),
					"path", r.URL.Path,
					"panic", fmt.Sprint(recovered),
					"stack", string(debug.Stack()),
				)
				if sw, ok := w.(interface{ Status() int }); ok && sw.Status() != 0 {
					return
				}
				writeError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
