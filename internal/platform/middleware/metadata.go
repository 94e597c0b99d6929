package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mssola/useragent"

	"provenant/pkg/requestcontext"
)

// Device headers sent by the capture client.
const (
	DeviceIDHeader   = "X-Device-ID"
	AppVersionHeader = "X-App-Version"
)

// ClientMetadata stores the client IP, user agent, device headers and the
// request time in the context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		ctx = requestcontext.WithDevice(ctx, strings.TrimSpace(r.Header.Get(DeviceIDHeader)), strings.TrimSpace(r.Header.Get(AppVersionHeader)))
		ctx = requestcontext.WithTime(ctx, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the remote address without its port.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// DescribeDevice summarizes a user agent as "<browser> <version> on <os>",
// with "(mobile)" or "(bot)" appended when detected. It returns "" for an
// empty user agent.
func DescribeDevice(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	name, version := parsed.Browser()
	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteString(" " + version)
	}
	if osName := parsed.OS(); osName != "" {
		b.WriteString(" on " + osName)
	}
	switch {
	case parsed.Bot():
		b.WriteString(" (bot)")
	case parsed.Mobile():
		b.WriteString(" (mobile)")
	}
	return strings.TrimSpace(b.String())
}
