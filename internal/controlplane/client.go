package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rileyhilliard/wgjoin/internal/keystore"
	"github.com/rileyhilliard/wgjoin/internal/logger"
)

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// RequestIDHeader carries a fresh UUID on every request so a run can be
// found in the control plane's logs.
const RequestIDHeader = "X-Request-ID"

// Options configures a Client.
type Options struct {
	// Address is host, host:port, or an http(s) URL.
	Address         string
	InfoPath        string
	RegisterPath    string
	ConnectTimeout  time.Duration
	InfoTimeout     time.Duration
	RegisterTimeout time.Duration
	Token           string
	UserAgent       string
	Log             logger.Logger
}

// Client talks to the control plane. Each call makes exactly one request.
type Client struct {
	base     *url.URL
	opts     Options
	info     *http.Client
	register *http.Client
	log      logger.Logger
}

// NewClient validates the address and builds one HTTP client per endpoint,
// each with its own total timeout and a shared connect timeout.
func NewClient(opts Options) (*Client, error) {
	base, err := ParseAddress(opts.Address)
	if err != nil {
		return nil, err
	}
	if opts.Log == nil {
		opts.Log = logger.Noop()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "wgjoin"
	}

	return &Client{
		base:     base,
		opts:     opts,
		info:     newHTTPClient(opts.ConnectTimeout, opts.InfoTimeout),
		register: newHTTPClient(opts.ConnectTimeout, opts.RegisterTimeout),
		log:      opts.Log,
	}, nil
}

func newHTTPClient(connect, total time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connect}
	return &http.Client{
		Timeout: total,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: connect,
		},
	}
}

// ParseAddress accepts "host", "host:port", or a full URL and returns the
// base URL requests are resolved against. Bare addresses default to http.
func ParseAddress(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("control plane address is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid control plane address %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q in control plane address", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("control plane address %q has no host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u, nil
}

// Host returns the control plane hostname without port. The tunnel endpoint
// is this host combined with the port the server announces.
func (c *Client) Host() string {
	return c.base.Hostname()
}

// BaseURL returns the normalized control plane URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// InfoURL returns the full server-info URL.
func (c *Client) InfoURL() string {
	return c.endpoint(c.opts.InfoPath)
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = c.base.Path + path
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	return req, nil
}

// FetchServerInfo asks the control plane for its public key, listen port,
// and the address octet assigned to this client.
func (c *Client) FetchServerInfo(ctx context.Context) (ServerInfo, error) {
	target := c.endpoint(c.opts.InfoPath)
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return ServerInfo{}, &UnreachableError{URL: target, Cause: err}
	}
	c.log.Debug("GET %s (request %s)", target, req.Header.Get(RequestIDHeader))

	resp, err := c.info.Do(req)
	if err != nil {
		return ServerInfo{}, &UnreachableError{URL: target, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return ServerInfo{}, &UnreachableError{URL: target, Cause: err}
	}
	c.log.Debug("info response: HTTP %d, %d bytes", resp.StatusCode, len(body))

	// An explicit ok:false wins over the status code and over the other
	// fields so the server's own message reaches the operator. Only ok and
	// error are decoded for this.
	var status infoStatus
	if json.Unmarshal(body, &status) == nil && status.OK != nil && !*status.OK {
		msg := strings.TrimSpace(status.Error)
		if msg == "" {
			msg = "no reason given"
		}
		return ServerInfo{}, &ServerRejectedError{Message: msg, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ServerInfo{}, &ServerRejectedError{
			Message:    fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			StatusCode: resp.StatusCode,
		}
	}

	var payload infoResponse
	if decodeErr := json.Unmarshal(body, &payload); decodeErr != nil {
		return ServerInfo{}, &MalformedResponseError{Reason: "could not be decoded", Cause: decodeErr}
	}

	return payload.validate()
}

// validate turns the wire payload into ServerInfo, applying the default port.
func (p infoResponse) validate() (ServerInfo, error) {
	if p.OK == nil {
		return ServerInfo{}, &MalformedResponseError{Field: "ok", Reason: "is missing"}
	}

	key := strings.TrimSpace(p.ServerPublicKey)
	if key == "" {
		return ServerInfo{}, &MalformedResponseError{Field: "server_public_key", Reason: "is missing"}
	}
	if !keystore.ValidKey(key) {
		return ServerInfo{}, &MalformedResponseError{Field: "server_public_key", Reason: "is not a WireGuard key"}
	}

	if !p.IPLastOctet.Set {
		return ServerInfo{}, &MalformedResponseError{Field: "ip_last_octet", Reason: "is missing"}
	}
	if p.IPLastOctet.Value < 0 || p.IPLastOctet.Value > 255 {
		return ServerInfo{}, &MalformedResponseError{
			Field:  "ip_last_octet",
			Reason: fmt.Sprintf("%d is outside 0-255", p.IPLastOctet.Value),
		}
	}

	port := DefaultPort
	if p.ServerPort.Set {
		port = p.ServerPort.Value
	}
	if port < 1 || port > 65535 {
		return ServerInfo{}, &MalformedResponseError{
			Field:  "server_port",
			Reason: fmt.Sprintf("%d is not a valid port", port),
		}
	}

	return ServerInfo{PublicKey: key, Port: port, AssignedOctet: p.IPLastOctet.Value}, nil
}

// Register posts the client's details once. It never returns an error:
// every failure is folded into a RegistrationResult with Accepted=false.
func (c *Client) Register(ctx context.Context, r RegistrationRequest) RegistrationResult {
	target := c.endpoint(c.opts.RegisterPath)

	body, err := json.Marshal(r)
	if err != nil {
		return RegistrationResult{Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := c.newRequest(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return RegistrationResult{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	c.log.Debug("POST %s (request %s)", target, req.Header.Get(RequestIDHeader))

	resp, err := c.register.Do(req)
	if err != nil {
		c.log.Warn("registration request failed: %v", err)
		return RegistrationResult{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		if text := strings.TrimSpace(string(data)); text != "" && len(text) < 512 {
			msg += ": " + text
		}
		c.log.Warn("registration returned %s", msg)
		return RegistrationResult{Message: msg, StatusCode: resp.StatusCode}
	}

	var payload registerResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		c.log.Warn("registration response is not JSON: %v", err)
		return RegistrationResult{
			Accepted:   true,
			Message:    "control plane answered 200 but the response could not be read",
			StatusCode: resp.StatusCode,
		}
	}

	if payload.WGConfigured {
		msg := payload.Message
		if msg == "" {
			msg = "peer added"
		}
		return RegistrationResult{Accepted: true, PeerAutoConfigured: true, Message: msg, StatusCode: resp.StatusCode}
	}

	msg := payload.Warning
	if msg == "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = "control plane stored the registration but did not add the peer"
	}
	return RegistrationResult{Accepted: true, Message: msg, StatusCode: resp.StatusCode}
}
