package middleware

import (
	"net/http"

	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/trace"
)

// TracingMiddleware starts a server span per request
func TracingMiddleware(next http.Handler) http.Handler {
	tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if span := trace.FromContext(r.Context()); span != nil {
			span.AddAttributes(
				trace.StringAttribute("http.path", r.URL.Path),
				trace.StringAttribute("http.user_agent", r.UserAgent()),
			)
			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				span.AddAttributes(trace.StringAttribute("http.request_id", requestID))
			}
		}
		next.ServeHTTP(&statusRecorder{ResponseWriter: w, r: r}, r)
	})

	return &ochttp.Handler{
		Handler: tagged,
		FormatSpanName: func(r *http.Request) string {
			return r.Method + " " + r.URL.Path
		},
		IsPublicEndpoint: true,
	}
}

// statusRecorder marks the span failed on 5xx answers
type statusRecorder struct {
	http.ResponseWriter
	r *http.Request
}

func (s *statusRecorder) WriteHeader(code int) {
	if span := trace.FromContext(s.r.Context()); span != nil {
		span.AddAttributes(trace.Int64Attribute("http.status_code", int64(code)))
		if code >= http.StatusInternalServerError {
			span.SetStatus(trace.Status{Code: trace.StatusCodeInternal, Message: http.StatusText(code)})
		}
	}
	s.ResponseWriter.WriteHeader(code)
}
