// Package highway implements the client for the highway operator's transit
// web service: session handshake, catalog and country-code reads, and the
// per-group event fetch with renewal retries
package highway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	perr "transitsync/internal/platform/errors"
	"transitsync/internal/platform/logger"
)

const (
	defaultTimeout = 30 * time.Second

	// maxFetchAttempts caps how often a single group request is retried
	// after session renewal before the group is abandoned
	maxFetchAttempts = 10

	// retryStep is multiplied by the attempt number for a linear backoff
	retryStep = 25 * time.Millisecond

	// groupPause is the fixed delay between consecutive group requests
	groupPause = 25 * time.Millisecond
)

// Options configures the Client
type Options struct {
	BaseURL  string
	Username string
	Password string

	Timeout   time.Duration
	UserAgent string
}

func (o *Options) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = "transitsync"
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
}

// Client talks to the operator's web service. It is safe for concurrent use;
// the session token is shared across goroutines and renewed under a mutex so
// overlapping 401s trigger a single handshake at a time
type Client struct {
	opts Options
	http *http.Client
	log  *logger.Logger

	mu      sync.Mutex
	session string

	tallyMu sync.Mutex
	tally   map[int]int

	// seams for tests
	sleep func(time.Duration)
}

// NewClient builds a Client; the session is opened separately via Open
func NewClient(opts Options) *Client {
	opts.setDefaults()
	return &Client{
		opts:  opts,
		http:  &http.Client{Timeout: opts.Timeout},
		log:   logger.Named("highway"),
		tally: map[int]int{},
		sleep: time.Sleep,
	}
}

// Open performs the credential handshake and stores the session token
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handshakeLocked(ctx)
}

func (c *Client) handshakeLocked(ctx context.Context) error {
	body := authRequest{Request: authCredentials{
		Username: c.opts.Username,
		Password: c.opts.Password,
	}}

	status, raw, err := c.do(ctx, http.MethodPost, "/token", body)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeAuth, "token handshake")
	}
	if status != http.StatusOK {
		return perr.Authf("token handshake refused (status %d)", status)
	}

	var env authEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Result == nil || env.Result.SessionID == "" {
		return perr.Authf("token handshake response not understood")
	}

	c.session = env.Result.SessionID
	c.log.Info().Str("session", maskToken(c.session)).Msg("session opened")
	return nil
}

// Close releases the session token. The client is unusable afterwards until
// Open is called again
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == "" {
		return perr.Authf("no active session to release")
	}

	status, raw, err := c.do(ctx, http.MethodDelete, "/token/"+c.session, nil)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeAuth, "token release")
	}
	if status != http.StatusOK {
		return perr.Authf("token release refused (status %d)", status)
	}

	var env releaseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Result == nil || !*env.Result {
		return perr.Authf("token release not acknowledged")
	}

	c.log.Info().Str("session", maskToken(c.session)).Msg("session released")
	c.session = ""
	return nil
}

// renew discards the current token and performs a fresh handshake. Callers
// racing on an expired session serialize here; the loser of the race reuses
// the token the winner just obtained
func (c *Client) renew(ctx context.Context, stale string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != "" && c.session != stale {
		return nil
	}
	c.session = ""
	return c.handshakeLocked(ctx)
}

func (c *Client) currentSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// StatusTally returns a copy of the per-status response counts accumulated
// since the client was built
func (c *Client) StatusTally() map[int]int {
	c.tallyMu.Lock()
	defer c.tallyMu.Unlock()

	out := make(map[int]int, len(c.tally))
	for k, v := range c.tally {
		out[k] = v
	}
	return out
}

func (c *Client) recordStatus(status int) {
	c.tallyMu.Lock()
	c.tally[status]++
	c.tallyMu.Unlock()
}

// do issues one request and returns the status code plus the full body.
// The service expects JSON bodies even on GET and DELETE
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}

// maskToken hides the tail of a session token for logs
func maskToken(tok string) string {
	const keep = 12
	if len(tok) <= keep {
		return strings.Repeat("*", len(tok))
	}
	return tok[:len(tok)-keep] + strings.Repeat("*", keep)
}
