package middleware_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"mime/multipart"
	"net/url"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/livepoll-go/internal/middleware"
	"github.com/stretchr/testify/assert"
)

var errMultipartNotSupported = errors.New("multipart not supported in mock")

func newTestAPI() huma.API {
	return humachi.New(chi.NewMux(), huma.DefaultConfig("Test", "1.0.0"))
}

// mockHumaContext implements huma.Context for testing.
type mockHumaContext struct {
	ctx        context.Context
	headers    map[string]string
	host       string
	remoteAddr string
	statusCode int
}

func newMockHumaContext() *mockHumaContext {
	return &mockHumaContext{
		ctx:     context.Background(),
		headers: make(map[string]string),
	}
}

func (m *mockHumaContext) Operation() *huma.Operation             { return nil }
func (m *mockHumaContext) Context() context.Context               { return m.ctx }
func (m *mockHumaContext) TLS() *tls.ConnectionState              { return nil }
func (m *mockHumaContext) Version() huma.ProtoVersion             { return huma.ProtoVersion{} }
func (m *mockHumaContext) Method() string                         { return "POST" }
func (m *mockHumaContext) Host() string                           { return m.host }
func (m *mockHumaContext) RemoteAddr() string                     { return m.remoteAddr }
func (m *mockHumaContext) URL() url.URL                           { return url.URL{} }
func (m *mockHumaContext) Param(_ string) string                  { return "" }
func (m *mockHumaContext) Query(_ string) string                  { return "" }
func (m *mockHumaContext) Header(name string) string              { return m.headers[name] }
func (m *mockHumaContext) EachHeader(_ func(name, value string))  {}
func (m *mockHumaContext) BodyReader() io.Reader                  { return nil }
func (m *mockHumaContext) SetReadDeadline(_ time.Time) error      { return nil }
func (m *mockHumaContext) SetStatus(code int)                     { m.statusCode = code }
func (m *mockHumaContext) Status() int                            { return m.statusCode }
func (m *mockHumaContext) AppendHeader(_, _ string)               {}
func (m *mockHumaContext) SetHeader(_, _ string)                  {}
func (m *mockHumaContext) BodyWriter() io.Writer                  { return io.Discard }
func (m *mockHumaContext) GetMultipartForm() (*multipart.Form, error) {
	return nil, errMultipartNotSupported
}

// resolvedIdentity runs the middleware and captures what the handler sees.
func resolvedIdentity(ctx *mockHumaContext) string {
	mw := middleware.Identity(newTestAPI())

	var identity string

	mw(ctx, func(next huma.Context) {
		identity = middleware.IdentityFromContext(next.Context())
	})

	return identity
}

func TestIdentity(t *testing.T) {
	t.Run("uses the first hop of X-Forwarded-For", func(t *testing.T) {
		ctx := newMockHumaContext()
		ctx.host = "10.0.0.1:12345"
		ctx.headers["X-Forwarded-For"] = "203.0.113.195, 70.41.3.18, 150.172.238.178"

		assert.Equal(t, "203.0.113.195", resolvedIdentity(ctx))
	})

	t.Run("uses a single X-Forwarded-For value as-is", func(t *testing.T) {
		ctx := newMockHumaContext()
		ctx.headers["X-Forwarded-For"] = " 203.0.113.195 "

		assert.Equal(t, "203.0.113.195", resolvedIdentity(ctx))
	})

	t.Run("falls back to X-Real-IP", func(t *testing.T) {
		ctx := newMockHumaContext()
		ctx.host = "10.0.0.1:12345"
		ctx.headers["X-Real-IP"] = "203.0.113.100"

		assert.Equal(t, "203.0.113.100", resolvedIdentity(ctx))
	})

	t.Run("X-Forwarded-For wins over X-Real-IP", func(t *testing.T) {
		ctx := newMockHumaContext()
		ctx.headers["X-Forwarded-For"] = "203.0.113.195"
		ctx.headers["X-Real-IP"] = "203.0.113.100"

		assert.Equal(t, "203.0.113.195", resolvedIdentity(ctx))
	})

	t.Run("falls back to the peer address, stripping the port", func(t *testing.T) {
		ctx := newMockHumaContext()
		ctx.host = "polls.example.com"
		ctx.remoteAddr = "192.168.1.1:12345"

		assert.Equal(t, "192.168.1.1", resolvedIdentity(ctx))
	})

	t.Run("uses the peer address as-is when it carries no port", func(t *testing.T) {
		ctx := newMockHumaContext()
		ctx.remoteAddr = "192.168.1.1"

		assert.Equal(t, "192.168.1.1", resolvedIdentity(ctx))
	})

	t.Run("ignores the Host header entirely", func(t *testing.T) {
		// Host is client-controlled; if it leaked into the identity a direct
		// caller could mint a fresh identity per request and stuff the ballot.
		first := newMockHumaContext()
		first.host = "evil-a.example"
		first.remoteAddr = "198.51.100.7:54321"

		second := newMockHumaContext()
		second.host = "evil-b.example"
		second.remoteAddr = "198.51.100.7:54321"

		assert.Equal(t, "198.51.100.7", resolvedIdentity(first))
		assert.Equal(t, resolvedIdentity(first), resolvedIdentity(second))
	})

	t.Run("resolves to unknown when nothing is available", func(t *testing.T) {
		ctx := newMockHumaContext()

		assert.Equal(t, middleware.UnknownIdentity, resolvedIdentity(ctx))
	})
}

func TestIdentityContext(t *testing.T) {
	t.Run("round-trips through the context", func(t *testing.T) {
		ctx := middleware.ContextWithIdentity(context.Background(), "203.0.113.9")

		assert.Equal(t, "203.0.113.9", middleware.IdentityFromContext(ctx))
	})

	t.Run("empty context falls back to unknown", func(t *testing.T) {
		assert.Equal(t, middleware.UnknownIdentity, middleware.IdentityFromContext(context.Background()))
	})

	t.Run("empty identity falls back to unknown", func(t *testing.T) {
		ctx := middleware.ContextWithIdentity(context.Background(), "")

		assert.Equal(t, middleware.UnknownIdentity, middleware.IdentityFromContext(ctx))
	})
}
