package cekunit

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Transport defaults.
const (
	DefaultUserAgent           = "Mozilla/5.0 (X11; Linux x86_64; rv:148.0) Gecko/20100101 Firefox/148.0"
	DefaultTimeout             = 15 * time.Second
	DefaultKeepAlive           = 60 * time.Second
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second

	formContentType = "application/x-www-form-urlencoded"
)

// TransportOptions configure a Transport. Zero fields take the defaults.
type TransportOptions struct {
	UserAgent           string
	Timeout             time.Duration
	Proxy               string
	KeepAlive           time.Duration
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	MaxRedirects        int
}

// TransportOptionsFrom derives transport settings from engine tunables.
func TransportOptionsFrom(o Options) TransportOptions {
	return TransportOptions{
		UserAgent: o.UserAgent,
		Timeout:   o.Timeout,
		Proxy:     o.Proxy,
	}
}

// Transport is the pooled HTTP client shared by all engines. It is safe for
// concurrent use. Its cookie jar lives only in memory.
type Transport struct {
	client    *http.Client
	jar       *cookiejar.Jar
	userAgent string
	timeout   time.Duration
}

// NewTransport builds a Transport with keep-alive, a bounded idle pool,
// gzip/deflate/brotli decoding, an in-memory cookie jar and an optional
// proxy.
func NewTransport(opts TransportOptions) (*Transport, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if opts.IdleConnTimeout <= 0 {
		opts.IdleConnTimeout = DefaultIdleConnTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}

	dialer := &net.Dialer{
		Timeout:   opts.Timeout,
		KeepAlive: opts.KeepAlive,
	}
	tr := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		IdleConnTimeout:     opts.IdleConnTimeout,
		TLSHandshakeTimeout: opts.Timeout,
		ForceAttemptHTTP2:   true,
		// Decoding is done by decodeBody so brotli is covered too.
		DisableCompression: true,
	}
	if err := applyProxy(tr, opts.Proxy); err != nil {
		return nil, &Error{Kind: KindConfigInvalid, Op: "transport", Name: "CEKUNIT_PROXY", Err: err}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Transport{
		client: &http.Client{
			Transport:     tr,
			Jar:           jar,
			CheckRedirect: RedirectPolicy(opts.MaxRedirects),
		},
		jar:       jar,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
	}, nil
}

// UserAgent returns the User-Agent sent on every request.
func (t *Transport) UserAgent() string { return t.userAgent }

// Timeout returns the default per-call timeout.
func (t *Transport) Timeout() time.Duration { return t.timeout }

// JarCookies returns the cookies the in-memory jar would send to rawURL.
func (t *Transport) JarCookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return t.jar.Cookies(u)
}

// DefaultHeaders returns User-Agent only.
func (t *Transport) DefaultHeaders() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", t.userAgent)
	return h
}

// FormHeaders returns User-Agent and the form content type.
func (t *Transport) FormHeaders() http.Header {
	h := t.DefaultHeaders()
	h.Set("Content-Type", formContentType)
	return h
}

type callOptions struct {
	timeout    time.Duration
	noRedirect bool
}

// CallOption adjusts a single request.
type CallOption func(*callOptions)

// WithTimeout overrides the per-call timeout, e.g. for bulk exports.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

// NoRedirect returns the first response even when it is a redirect.
func NoRedirect() CallOption {
	return func(o *callOptions) { o.noRedirect = true }
}

// Get issues a GET request.
func (t *Transport) Get(ctx context.Context, rawURL string, headers http.Header, opts ...CallOption) (*Response, error) {
	return t.do(ctx, http.MethodGet, rawURL, headers, nil, opts)
}

// PostForm issues a POST with an URL-encoded form body.
func (t *Transport) PostForm(ctx context.Context, rawURL string, headers http.Header, form url.Values, opts ...CallOption) (*Response, error) {
	h := headers.Clone()
	if h == nil {
		h = make(http.Header)
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", formContentType)
	}
	return t.do(ctx, http.MethodPost, rawURL, h, strings.NewReader(form.Encode()), opts)
}

func (t *Transport) do(ctx context.Context, method, rawURL string, headers http.Header, body io.Reader, opts []CallOption) (*Response, error) {
	co := callOptions{timeout: t.timeout}
	for _, o := range opts {
		o(&co)
	}
	if co.noRedirect {
		ctx = withNoRedirect(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, co.timeout)
	defer cancel()

	op := strings.ToLower(method)
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &Error{Kind: KindConfigInvalidURL, Op: op, Name: rawURL, Err: err}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	encoding := resp.Header.Get("Content-Encoding")
	r, err := decodeBody(encoding, resp.Body)
	if err != nil {
		return nil, transportError(op, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, transportError(op, err)
	}

	header := resp.Header.Clone()
	if encoding != "" {
		header.Del("Content-Encoding")
		header.Del("Content-Length")
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     header,
		URL:        resp.Request.URL.String(),
		body:       data,
	}, nil
}

// Response is a fully received reply. Header is a private snapshot and the
// decoded body can be read exactly once.
type Response struct {
	StatusCode int
	Header     http.Header
	// URL is the final URL after any redirects.
	URL string

	mu       sync.Mutex
	body     []byte
	consumed bool
}

// NewResponse builds a Response around an in-memory body.
func NewResponse(status int, header http.Header, body []byte) *Response {
	return &Response{StatusCode: status, Header: header.Clone(), body: body}
}

// Body returns the decoded body. A second call returns ErrBodyConsumed.
func (r *Response) Body() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consumed {
		return nil, ErrBodyConsumed
	}
	r.consumed = true
	b := r.body
	r.body = nil
	return b, nil
}

// Text returns the body as a string.
func (r *Response) Text() (string, error) {
	b, err := r.Body()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
