package controller

import (
	"bytes"
	"io"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultAuditBodyLimit caps how much of a request body is copied into an audit record.
const DefaultAuditBodyLimit = 64 << 10

// redactedHeaders are recorded with their scheme only.
var redactedHeaders = map[string]bool{ //nolint: gochecknoglobals
	"Authorization":       true,
	"Proxy-Authorization": true,
}

// auditHeaders marshals request headers in a stable key order.
type auditHeaders http.Header

func (h auditHeaders) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := strings.Join(h[k], ", ")
		if redactedHeaders[k] {
			v = redact(v)
		}
		enc.AddString(k, v)
	}

	return nil
}

// redact keeps the authentication scheme and hides the credentials.
func redact(v string) string {
	scheme, _, found := strings.Cut(v, " ")
	if !found {
		return "[REDACTED]"
	}

	return scheme + " [REDACTED]"
}

// requestURL reconstructs the absolute URL the client requested.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// captureBody copies up to limit bytes of the body and rewinds it so the next
// handler still reads the complete payload.
func captureBody(r *http.Request, limit int64) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, limit))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
	if err != nil {
		return ""
	}

	return string(buf)
}

// WithAudit returns a middleware that appends one record per request to sink
// before dispatching it: method, absolute URL and all headers, plus the raw
// body for POST and PUT requests. Credentials are redacted. Audit failures
// never affect the request.
func WithAudit(sink *zap.Logger, bodyLimit int64, next http.Handler) http.Handler {
	if bodyLimit <= 0 {
		bodyLimit = DefaultAuditBodyLimit
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		func() {
			defer func() { _ = recover() }()

			fields := []zapcore.Field{
				zap.String("method", r.Method),
				zap.String("url", requestURL(r)),
				zap.Object("headers", auditHeaders(r.Header)),
			}
			if id, _ := r.Context().Value(RequestIDKey).(string); id != "" {
				fields = append(fields, zap.String(string(RequestIDKey), id))
			}
			if r.Method == http.MethodPost || r.Method == http.MethodPut {
				fields = append(fields, zap.String("payload", captureBody(r, bodyLimit)))
			}

			sink.Info("request", fields...)
		}()

		next.ServeHTTP(w, r)
	})
}
