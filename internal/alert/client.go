package alert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"

	"github.com/adomitis8/password-alert/internal/token"
)

// ClientOptions configures the HTTP side of alert delivery.
type ClientOptions struct {
	// ReportURL is the base URL of the alert backend. Password alerts go
	// to "<ReportURL>/password/" and phishing alerts to "<ReportURL>/page/".
	ReportURL string

	// Tokens supplies the OAuth bearer token attached to password
	// alerts. Nil sends alerts without a token.
	Tokens token.Source

	// Version is reported in phishing alerts so the backend can tell
	// which client build flagged the page.
	Version string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form for
	// all alert traffic. Empty means direct egress.
	ProxyAddress string

	// Logger receives delivery diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// Client POSTs form-encoded alerts to the backend.
type Client struct {
	reportURL string
	http      *http.Client
	tokens    token.Source
	version   string
	logger    *slog.Logger
}

// NewClient creates an alert client. The report URL is required; a proxy
// address, when given, must be dialable as SOCKS5 at delivery time but
// is only validated syntactically here.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.ReportURL == "" {
		return nil, ErrMissingReportURL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	httpClient := &http.Client{}
	if opts.ProxyAddress != "" {
		transport, err := socks5Transport(opts.ProxyAddress)
		if err != nil {
			return nil, err
		}
		httpClient.Transport = transport
	}

	return &Client{
		reportURL: strings.TrimSuffix(opts.ReportURL, "/"),
		http:      httpClient,
		tokens:    opts.Tokens,
		version:   opts.Version,
		logger:    opts.Logger,
	}, nil
}

// socks5Transport builds an HTTP transport that dials through the given
// SOCKS5 proxy instead of connecting directly.
func socks5Transport(address string) (*http.Transport, error) {
	dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create socks5 dialer: %w", err)
	}

	transport := &http.Transport{}
	if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = contextDialer.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}

// bearerToken fetches the OAuth token for a password alert. A failed
// fetch is logged and the alert goes out without a token: the backend
// still learns about the event even when the token endpoint is down.
func (c *Client) bearerToken(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.Warn("failed to obtain alert bearer token", "error", err)
		return ""
	}
	return tok
}

// postForm sends one form-encoded POST to the backend path. The response
// body is discarded; only the status code matters.
func (c *Client) postForm(ctx context.Context, path string, values url.Values) error {
	endpoint := c.reportURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver alert: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body close errors are not actionable

	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("alert backend returned %s", resp.Status)
	}
	return nil
}
