// ABOUTME: Request logging middleware emitting the same component-tagged
// ABOUTME: key=value lines the rest of the pipeline logs with.
package web

import (
	"log"
	"net/http"
	"time"
)

// responseMeta wraps a ResponseWriter to observe the status code and body
// size. The status starts at 200 because handlers that never call
// WriteHeader implicitly send it.
type responseMeta struct {
	http.ResponseWriter
	status int
	bytes  int
}

func newResponseMeta(w http.ResponseWriter) *responseMeta {
	return &responseMeta{ResponseWriter: w, status: http.StatusOK}
}

func (m *responseMeta) WriteHeader(code int) {
	m.status = code
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeta) Write(p []byte) (int, error) {
	n, err := m.ResponseWriter.Write(p)
	m.bytes += n
	return n, err
}

// requestLogger logs one line per request after the handler returns.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		meta := newResponseMeta(w)
		next.ServeHTTP(meta, r)
		log.Printf("component=web action=request method=%s path=%s status=%d bytes=%d duration=%s remote=%s",
			r.Method, r.URL.Path, meta.status, meta.bytes,
			time.Since(start).Round(time.Microsecond), r.RemoteAddr)
	})
}
