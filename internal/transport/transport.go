// Package transport provides the HTTP transports used by the backend gateway.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// The commerce backend sits behind a CDN that rate-limits clients by TLS
// fingerprint (JA3). Go's standard TLS client stack has a distinctive
// fingerprint and trips that limiter under normal storefront traffic.
//
// NewBrowserTransport presents a Chrome-like ClientHello via uTLS and lets
// ALPN pick the protocol: Go's http2.Transport handles framing when h2 is
// negotiated, with an HTTP/1.1 fallback otherwise.
func NewBrowserTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}

	h2 := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialBrowserTLS(ctx, dialer, network, addr)
		},
	}

	h1 := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialBrowserTLS(ctx, dialer, network, addr)
		},
		ForceAttemptHTTP2: false,
	}

	return &browserTransport{h2: h2, h1: h1}
}

type browserTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip prefers h2; an h2 failure retries the request over HTTP/1.1,
// which covers origins whose edge terminates TLS but speaks only HTTP/1.1
// upstream.
func (t *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	return t.h1.RoundTrip(req)
}

// dialBrowserTLS dials and completes a uTLS handshake with the Chrome
// ClientHello. addr may arrive without a port when the caller already
// stripped it.
func dialBrowserTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
