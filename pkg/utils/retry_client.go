// pkg/utils/retry_client.go
package utils

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	utls "github.com/refraction-networking/utls"
	proxy "golang.org/x/net/proxy"
)

// FailureKind separates "the server is unreachable" from "the server
// answered but the payload is unusable". Only network failures are worth
// retrying.
type FailureKind string

const (
	FailureNetwork FailureKind = "network"
	FailureDecode  FailureKind = "decode"
)

// Sentinel targets for errors.Is checks against a FetchError.
var (
	ErrNetwork = errors.New("network failure")
	ErrDecode  = errors.New("decode failure")
)

// FetchError is the terminal error of a fetch attempt loop.
type FetchError struct {
	Kind FailureKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failure: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == FailureNetwork
	case ErrDecode:
		return e.Kind == FailureDecode
	}
	return false
}

var clientHelloIDs = []utls.ClientHelloID{
	utls.HelloChrome_Auto,
	utls.HelloFirefox_Auto,
	utls.HelloSafari_Auto,
	utls.HelloEdge_Auto,
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9,en-US;q=0.8",
	"en-AU,en;q=0.9",
}

// ProxyRotator hands out upstream proxies round-robin. A rotator over an
// empty list yields nil, which means direct dialing.
type ProxyRotator struct {
	parsedURLs []*url.URL
	currentIdx uint32
}

func NewProxyRotator(proxyURLs []string) (*ProxyRotator, error) {
	rotator := &ProxyRotator{}

	for _, rawURL := range proxyURLs {
		if rawURL == "" {
			continue
		}
		parsedURL, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy URL %s: %w", rawURL, err)
		}
		rotator.parsedURLs = append(rotator.parsedURLs, parsedURL)
	}

	return rotator, nil
}

func (r *ProxyRotator) Next() *url.URL {
	if len(r.parsedURLs) == 0 {
		return nil
	}

	idx := atomic.AddUint32(&r.currentIdx, 1) % uint32(len(r.parsedURLs))
	return r.parsedURLs[idx]
}

type fingerprintingDialer struct {
	proxyURL      *url.URL
	clientHelloID utls.ClientHelloID
}

func newFingerprintingDialer(proxyURL *url.URL) *fingerprintingDialer {
	return &fingerprintingDialer{
		proxyURL:      proxyURL,
		clientHelloID: clientHelloIDs[rand.Intn(len(clientHelloIDs))],
	}
}

func (d *fingerprintingDialer) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	var conn net.Conn
	var err error

	if d.proxyURL == nil {
		var dialer net.Dialer
		conn, err = dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, fmt.Errorf("direct dial: %w", err)
		}
	} else {
		conn, err = d.dialThroughProxy(ctx, network, addr)
		if err != nil {
			return nil, fmt.Errorf("proxy dial: %w", err)
		}
	}

	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}

	uconn := utls.UClient(conn, &utls.Config{ServerName: host}, d.clientHelloID)
	if err := uconn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("uTLS handshake: %w", err)
	}

	return uconn, nil
}

func (d *fingerprintingDialer) dialThroughProxy(ctx context.Context, network, addr string) (net.Conn, error) {
	switch d.proxyURL.Scheme {
	case "http", "https":
		transport := &http.Transport{
			Proxy: http.ProxyURL(d.proxyURL),
		}
		conn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, fmt.Errorf("dial via HTTP proxy: %w", err)
		}
		return conn, nil

	case "socks5":
		auth := &proxy.Auth{}
		if d.proxyURL.User != nil {
			auth.User = d.proxyURL.User.Username()
			if password, ok := d.proxyURL.User.Password(); ok {
				auth.Password = password
			}
		}

		dialer, err := proxy.SOCKS5("tcp", d.proxyURL.Host, auth, &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("create SOCKS5 dialer: %w", err)
		}

		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)

	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", d.proxyURL.Scheme)
	}
}

type fingerprintingTransport struct {
	rotator   *ProxyRotator
	transport *http.Transport
	userAgent string
}

func newFingerprintingTransport(rotator *ProxyRotator, userAgent string) http.RoundTripper {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     false,
	}

	return &fingerprintingTransport{
		rotator:   rotator,
		transport: transport,
		userAgent: userAgent,
	}
}

func (t *fingerprintingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())

	if reqCopy.Header.Get("User-Agent") == "" {
		reqCopy.Header.Set("User-Agent", t.userAgent)
	}
	reqCopy.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))])
	reqCopy.Header.Set("Accept-Encoding", "gzip, deflate")
	reqCopy.Header.Set("Accept", "application/json")

	transport := t.transportFor(t.rotator.Next(), req.URL.Scheme)
	return transport.RoundTrip(reqCopy)
}

// transportFor returns the transport to use for one request. The shared base
// transport is never mutated: any per-request proxy or TLS dialer goes onto
// a clone, so concurrent requests cannot race on its fields.
func (t *fingerprintingTransport) transportFor(proxyURL *url.URL, scheme string) *http.Transport {
	if proxyURL == nil && scheme != "https" {
		return t.transport
	}

	transport := t.transport.Clone()
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if scheme == "https" {
		dialer := newFingerprintingDialer(proxyURL)
		transport.DialTLSContext = dialer.DialTLSContext
	}

	return transport
}

// RetryableClient performs single GETs with a bounded, fixed-delay retry
// policy. Transport-level failures (connection errors, non-2xx statuses)
// are retried up to maxAttempts total attempts; a 2xx response carrying an
// undecodable JSON body aborts the attempt loop immediately with a decode
// failure.
type RetryableClient struct {
	client      *http.Client
	maxAttempts int
	retryDelay  time.Duration
	log         *slog.Logger
}

// NewRetryableClient builds a client over the fingerprinting transport.
// proxyURLs may be empty, in which case all requests dial directly.
func NewRetryableClient(proxyURLs []string, maxAttempts int, retryDelay time.Duration, userAgent string, log *slog.Logger) (*RetryableClient, error) {
	if maxAttempts < 1 {
		return nil, fmt.Errorf("maxAttempts must be at least 1, got %d", maxAttempts)
	}

	rotator, err := NewProxyRotator(proxyURLs)
	if err != nil {
		return nil, fmt.Errorf("create proxy rotator: %w", err)
	}

	httpClient := &http.Client{
		Transport: newFingerprintingTransport(rotator, userAgent),
		Timeout:   30 * time.Second,
	}

	return &RetryableClient{
		client:      httpClient,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		log:         log,
	}, nil
}

// NewRetryableClientWithTransport is the test seam: same attempt loop over
// an arbitrary round tripper.
func NewRetryableClientWithTransport(rt http.RoundTripper, maxAttempts int, retryDelay time.Duration, log *slog.Logger) *RetryableClient {
	return &RetryableClient{
		client:      &http.Client{Transport: rt},
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		log:         log,
	}
}

// Do runs the request through the attempt loop and returns the response
// body, which is guaranteed to be valid JSON on success.
func (c *RetryableClient) Do(req *http.Request) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-req.Context().Done():
				return nil, &FetchError{Kind: FailureNetwork, Err: req.Context().Err()}
			case <-time.After(c.retryDelay):
			}
			c.log.Warn("retrying request",
				slog.String("url", req.URL.String()),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", c.maxAttempts),
			)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warn("request failed",
				slog.String("url", req.URL.String()),
				slog.Int("attempt", attempt),
				slog.String("err", err.Error()),
			)
			continue
		}

		bodyBytes, err := readBody(resp)
		if err != nil {
			lastErr = err
			c.log.Warn("reading response body failed",
				slog.String("url", req.URL.String()),
				slog.Int("attempt", attempt),
				slog.String("err", err.Error()),
			)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			c.log.Warn("request rejected",
				slog.String("url", req.URL.String()),
				slog.Int("attempt", attempt),
				slog.Int("status", resp.StatusCode),
			)
			continue
		}

		if !json.Valid(bodyBytes) {
			// The server answered; retrying won't change the payload.
			ferr := &FetchError{Kind: FailureDecode, Err: fmt.Errorf("response body is not valid JSON")}
			c.log.Error("undecodable response body",
				slog.String("url", req.URL.String()),
				slog.Int("attempt", attempt),
			)
			return nil, ferr
		}

		return bodyBytes, nil
	}

	ferr := &FetchError{
		Kind: FailureNetwork,
		Err:  fmt.Errorf("all %d attempts failed: %w", c.maxAttempts, lastErr),
	}
	c.log.Error("giving up on request",
		slog.String("url", req.URL.String()),
		slog.Int("attempts", c.maxAttempts),
		slog.String("err", ferr.Err.Error()),
	)
	return nil, ferr
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	var reader io.ReadCloser
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	default:
		reader = resp.Body
	}

	bodyBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	// Some proxies double-compress; unwrap a second gzip layer if present.
	if len(bodyBytes) > 1 && bodyBytes[0] == 0x1f && bodyBytes[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(bodyBytes))
		if err == nil {
			if uncompressed, err := io.ReadAll(gz); err == nil {
				bodyBytes = uncompressed
			}
			gz.Close()
		}
	}

	return bodyBytes, nil
}
