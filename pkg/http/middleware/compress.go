package middleware

import (
	"bufio"
	"net"
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/labstack/echo/v4"
)

// Skipper reports whether a request bypasses a middleware.
type Skipper func(c echo.Context) bool

// SkipPrefixes skips requests whose path starts with any of prefixes.
func SkipPrefixes(prefixes ...string) Skipper {
	return func(c echo.Context) bool {
		p := c.Request().URL.Path
		for _, pre := range prefixes {
			if strings.HasPrefix(p, pre) {
				return true
			}
		}
		return false
	}
}

type zstdResponseWriter struct {
	http.ResponseWriter
	encoder *zstd.Encoder
}

func (w *zstdResponseWriter) WriteHeader(code int) {
	w.Header().Del(echo.HeaderContentLength)
	w.ResponseWriter.WriteHeader(code)
}

func (w *zstdResponseWriter) Write(b []byte) (int, error) {
	return w.encoder.Write(b)
}

func (w *zstdResponseWriter) Flush() {
	_ = w.encoder.Flush()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *zstdResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

// Zstd compresses responses for clients that accept zstd. Skipped requests
// pass through untouched.
func Zstd(skip Skipper) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}
			if !strings.Contains(c.Request().Header.Get(echo.HeaderAcceptEncoding), "zstd") {
				return next(c)
			}

			res := c.Response()
			encoder, err := zstd.NewWriter(res.Writer, zstd.WithEncoderLevel(zstd.SpeedFastest))
			if err != nil {
				return err
			}
			defer encoder.Close()

			res.Header().Set(echo.HeaderContentEncoding, "zstd")
			res.Header().Add(echo.HeaderVary, echo.HeaderAcceptEncoding)
			orig := res.Writer
			res.Writer = &zstdResponseWriter{ResponseWriter: orig, encoder: encoder}
			defer func() { res.Writer = orig }()

			if err := next(c); err != nil {
				c.Error(err)
			}
			return nil
		}
	}
}
