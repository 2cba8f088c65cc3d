// Package cekunit is a client for a server-rendered site that uses form
// login with a per-session CSRF token. It logs in once, keeps the session in
// a per-user cache file and attaches it to later requests.
//
// Basic usage:
//
//	cfg, err := cekunit.LoadConfig(cekunit.LoadOptions{})
//	client, err := cekunit.New(cfg)
//	sess, err := client.Login(ctx)
//	page, err := client.FetchPage(ctx, common.DashboardEndpointEnv)
package cekunit

import (
	"context"
	"time"

	"github.com/cekunit/cekunit/common"
	"github.com/cekunit/cekunit/pkg/logger"
)

// Client owns the shared Env and exposes the session operations.
type Client struct {
	env    *Env
	login  *LoginEngine
	logout *LogoutEngine
	gate   *Gate
}

// Option configures a Client.
type Option func(*Env)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(e *Env) { e.Logger = l }
}

// WithStore replaces the session store.
func WithStore(s *Store) Option {
	return func(e *Env) { e.Store = s }
}

// WithTransport replaces the HTTP transport.
func WithTransport(t *Transport) Option {
	return func(e *Env) { e.Transport = t }
}

// WithRetryConfig replaces the retry schedule.
func WithRetryConfig(rc RetryConfig) Option {
	return func(e *Env) { e.Retry = rc }
}

// WithClock replaces the time source used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Env) { e.Now = now }
}

// New builds a Client. Unless overridden by options, the store lives in
// Options.CacheDir or DefaultCacheDir and the transport follows the
// configured timeout, proxy and user agent.
func New(cfg *Config, opts ...Option) (*Client, error) {
	env := &Env{
		Config: cfg,
		Retry:  DefaultRetryConfig(),
		Logger: logger.NewNopLogger(),
		Now:    time.Now,
	}
	for _, o := range opts {
		o(env)
	}
	if env.Store == nil {
		store, err := NewStore(cfg.Options().CacheDir)
		if err != nil {
			return nil, err
		}
		env.Store = store
	}
	env.Store.SetClock(env.Now)
	if env.Transport == nil {
		tr, err := NewTransport(TransportOptionsFrom(cfg.Options()))
		if err != nil {
			return nil, err
		}
		env.Transport = tr
	}
	return &Client{
		env:    env,
		login:  NewLoginEngine(env),
		logout: NewLogoutEngine(env),
		gate:   NewGate(env),
	}, nil
}

// Config returns the client configuration.
func (c *Client) Config() *Config { return c.env.Config }

// Store returns the session store.
func (c *Client) Store() *Store { return c.env.Store }

// Transport returns the shared HTTP transport.
func (c *Client) Transport() *Transport { return c.env.Transport }

// Gate returns the session gate for request builders.
func (c *Client) Gate() *Gate { return c.gate }

// Login authenticates and stores a new session.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	return c.login.Login(ctx)
}

// Logout ends the session with the cached token. If the server rejects the
// token as expired and a dashboard endpoint is configured, a fresh token is
// scraped from the dashboard and the logout is retried once with it.
func (c *Client) Logout(ctx context.Context) error {
	err := c.logout.Logout(ctx)
	if err == nil || !IsCSRFExpired(err) {
		return err
	}
	if _, ok := c.env.Config.Endpoint(common.DashboardEndpointEnv); !ok {
		return err
	}
	c.env.log().Warning("Logout token expired, fetching a fresh one")
	token, rerr := c.RefreshToken(ctx)
	if rerr != nil {
		c.env.log().Error("Failed to refresh token: %v", rerr)
		return err
	}
	return c.logout.LogoutWithToken(ctx, token)
}

// LogoutWithToken ends the session with the given token.
func (c *Client) LogoutWithToken(ctx context.Context, token string) error {
	return c.logout.LogoutWithToken(ctx, token)
}

// RefreshToken scrapes the current CSRF token from the dashboard page and
// stores it in the session.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	page, err := c.FetchPage(ctx, common.DashboardEndpointEnv)
	if err != nil {
		return "", err
	}
	token, err := ExtractCSRFToken(page.Body)
	if err != nil {
		return "", err
	}
	if err := c.env.Store.UpdateToken(token); err != nil {
		return "", err
	}
	c.env.log().Debug("CSRF token refreshed: %s", tokenPrefix(token))
	return token, nil
}

// Page is the body of an authenticated GET.
type Page struct {
	URL        string
	StatusCode int
	Body       string
}

// exportEndpoints use the longer bulk timeout.
var exportEndpoints = map[string]bool{
	common.ExportEndpointEnv:  true,
	common.InputUserExportEnv: true,
}

// FetchPage GETs the endpoint named by key with the stored session.
// Server errors are retried; other non-2xx statuses map to typed errors.
func (c *Client) FetchPage(ctx context.Context, key string) (*Page, error) {
	sess, err := c.gate.Require()
	if err != nil {
		return nil, err
	}
	target, err := c.env.Config.URL(key)
	if err != nil {
		return nil, err
	}
	var callOpts []CallOption
	if exportEndpoints[key] {
		callOpts = append(callOpts, WithTimeout(c.env.Config.Options().ExportTimeout))
	}
	headers := c.gate.HeadersFor(sess)

	page, _, err := WithRetry(ctx, c.env.Retry, c.env.log(), func(ctx context.Context, attempt int) (*Page, Outcome, error) {
		resp, err := c.env.Transport.Get(ctx, target, headers, callOpts...)
		if err != nil {
			return nil, ClassifyError(err), err
		}
		body, err := resp.Text()
		if err != nil {
			return nil, Retry, transportError("get", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, ClassifyStatus(resp.StatusCode), StatusError("get "+key, resp.StatusCode, body)
		}
		return &Page{URL: resp.URL, StatusCode: resp.StatusCode, Body: body}, Success, nil
	})
	return page, err
}

// StatusReport describes the local session without contacting the server.
type StatusReport struct {
	Path     string
	Exists   bool
	LoggedIn bool
	Cookies  int
	Age      time.Duration
	// Fresh is set when the session is younger than the requested max age.
	Fresh bool
}

// Status inspects the stored session. maxAge <= 0 skips the freshness check.
func (c *Client) Status(maxAge time.Duration) (*StatusReport, error) {
	r := &StatusReport{Path: c.env.Store.Path()}
	sess, err := c.env.Store.Load()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return r, nil
	}
	r.Exists = true
	r.LoggedIn = sess.Valid()
	r.Cookies = len(sess.Cookies)
	r.Age = sess.Age(c.env.now())
	if maxAge > 0 {
		fresh, err := c.env.Store.LoadFresh(maxAge)
		if err != nil {
			return nil, err
		}
		r.Fresh = fresh != nil
	}
	return r, nil
}

// Clean removes the stored session without contacting the server.
func (c *Client) Clean() error {
	if err := c.env.Store.Clear(); err != nil {
		return err
	}
	c.env.log().Info("Cache cleared")
	return nil
}
