package logsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/logview/internal/stream"
)

const (
	defaultServer    = "127.0.0.1:8080"
	defaultUserAgent = "logview/0.1"
	requestTimeout   = 5 * time.Second

	contentPath = "/content"
	logsPath    = "/logs"
	statusPath  = "/status"
)

// ErrStreamEnded is reported when the server closes an event stream.
var ErrStreamEnded = errors.New("event stream ended")

// Client talks to a logview server: one-shot content fetches plus the
// /logs event stream.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	stream    *http.Client
	userAgent string
	logger    *zap.Logger
}

// Ensure Client can back a stream.Client.
var _ stream.Transport = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a Client for the server at serverURL (host:port or a
// full URL).
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		// Event streams stay open indefinitely; cancellation is by context.
		stream:    &http.Client{},
		userAgent: defaultUserAgent,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchContent retrieves the full log text.
func (c *Client) FetchContent(ctx context.Context) (string, error) {
	return c.FetchTail(ctx, 0)
}

// FetchTail retrieves the last lines of the log; lines <= 0 fetches it all.
func (c *Client) FetchTail(ctx context.Context, lines int) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: contentPath}
	if lines > 0 {
		rel.RawQuery = url.Values{"tail": []string{strconv.Itoa(lines)}}.Encode()
	}
	resp, err := c.get(ctx, c.http, rel, "text/plain")
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

// FetchStatus retrieves the server's watcher status.
func (c *Client) FetchStatus(ctx context.Context) (*StatusResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	resp, err := c.get(ctx, c.http, &url.URL{Path: statusPath}, "application/json")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var payload StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &payload, nil
}

// Open starts a /logs subscription in the background. Events are tagged with
// id and handed to post. Once the returned subscription is closed no further
// error is reported.
func (c *Client) Open(id uuid.UUID, post func(stream.Event)) stream.Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		err := c.subscribe(ctx, id, post)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = ErrStreamEnded
		}
		c.logger.Debug("subscription ended",
			zap.String("subscription", id.String()),
			zap.Error(err),
		)
		post(stream.Event{Kind: stream.EventError, Subscription: id, Err: err})
	}()
	return sub
}

func (c *Client) subscribe(ctx context.Context, id uuid.UUID, post func(stream.Event)) error {
	resp, err := c.get(ctx, c.stream, &url.URL{Path: logsPath}, "text/event-stream")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api %s returned status %d", logsPath, resp.StatusCode)
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/event-stream" {
		return fmt.Errorf("api %s returned content type %q", logsPath, resp.Header.Get("Content-Type"))
	}

	post(stream.Event{Kind: stream.EventOpen, Subscription: id})
	err = readEvents(resp.Body, func(data string) {
		post(stream.Event{Kind: stream.EventMessage, Subscription: id, Line: data})
	})
	if err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, hc *http.Client, rel *url.URL, accept string) (*http.Response, error) {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)
	}
	return resp, nil
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Close cancels the request. It does not wait for the reader goroutine,
// which may be blocked handing an event to the caller's loop.
func (s *subscription) Close() error {
	s.cancel()
	return nil
}

func parseBaseURL(serverURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(serverURL)
	if trimmed == "" {
		trimmed = defaultServer
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", serverURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
