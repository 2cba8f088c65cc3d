package cekunit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// LoginState is a step of the login sequence.
type LoginState int

const (
	Unauthenticated LoginState = iota
	FetchingToken
	PostingCredentials
	Authenticated
)

func (s LoginState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case FetchingToken:
		return "fetching-token"
	case PostingCredentials:
		return "posting-credentials"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// LoginEngine replays the site's form login and persists the session.
type LoginEngine struct {
	env *Env
}

// NewLoginEngine returns a LoginEngine reading from env.
func NewLoginEngine(env *Env) *LoginEngine {
	return &LoginEngine{env: env}
}

func (l *LoginEngine) transition(s LoginState) {
	l.env.log().Debug("login state: %s", s)
}

// Login fetches a CSRF token, posts the credential and stores the session
// built from the response cookies. On any error the store is left as it
// was.
func (l *LoginEngine) Login(ctx context.Context) (*Session, error) {
	log := l.env.log()
	cfg := l.env.Config
	cred := cfg.Credential()

	l.transition(Unauthenticated)
	if strings.TrimSpace(cred.Email) == "" || cred.Password == "" {
		return nil, loginFailed(0, "Email and password are required")
	}
	if !strings.Contains(cred.Email, "@") {
		log.Warning("Email %q does not look like an address", cred.Email)
	}

	l.transition(FetchingToken)
	token, err := l.FetchToken(ctx)
	if err != nil {
		l.transition(Unauthenticated)
		return nil, err
	}
	log.Debug("CSRF token fetched: %s", tokenPrefix(token))

	form := url.Values{}
	form.Set("_token", token)
	form.Set("email", cred.Email)
	form.Set("password", cred.Password)

	headers := l.env.Transport.FormHeaders()
	if prev, err := l.env.Store.Load(); err != nil {
		log.Warning("Ignoring cached session: %v", err)
	} else if prev != nil {
		AttachCookies(headers, l.primeCookies(prev))
	}

	l.transition(PostingCredentials)
	resp, err := l.postCredentials(ctx, headers, form)
	if err != nil {
		l.transition(Unauthenticated)
		return nil, err
	}

	log.Debug("login accepted with HTTP %d", resp.status)
	cookies := l.collectCookies(resp.header)
	if len(cookies) == 0 {
		log.Warning("No cookies received from login response")
	}
	sess := &Session{
		Cookies:   cookies,
		CSRFToken: token,
		LoggedIn:  true,
		Timestamp: l.env.now().Unix(),
	}
	if err := l.env.Store.Save(sess); err != nil {
		l.transition(Unauthenticated)
		return nil, err
	}
	l.transition(Authenticated)
	log.Info("Login successful (%d cookies)", len(cookies))
	return sess.Clone(), nil
}

// FetchToken GETs the login page and extracts its CSRF token. Server errors
// and network failures are retried; a page without a token is not.
func (l *LoginEngine) FetchToken(ctx context.Context) (string, error) {
	loginURL := l.env.Config.LoginURL()
	token, _, err := WithRetry(ctx, l.env.Retry, l.env.log(), func(ctx context.Context, attempt int) (string, Outcome, error) {
		resp, err := l.env.Transport.Get(ctx, loginURL, l.env.Transport.DefaultHeaders())
		if err != nil {
			return "", ClassifyError(err), err
		}
		body, err := resp.Text()
		if err != nil {
			return "", Retry, transportError("get", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return "", ClassifyStatus(resp.StatusCode), loginFailed(resp.StatusCode, httpMessage(resp.StatusCode, body))
		}
		token, err := ExtractCSRFToken(body)
		if err != nil {
			return "", Terminal, err
		}
		return token, Success, nil
	})
	return token, err
}

// primeCookies returns the cached cookies the jar does not already hold
// for the login URL. The client appends jar cookies after the explicit
// header, so a stale value under the same name would shadow the fresh one.
func (l *LoginEngine) primeCookies(prev *Session) map[string]string {
	primed := prev.CookieMap()
	for _, c := range l.env.Transport.JarCookies(l.env.Config.LoginURL()) {
		delete(primed, c.Name)
	}
	return primed
}

type loginReply struct {
	status int
	header http.Header
}

func (l *LoginEngine) postCredentials(ctx context.Context, headers http.Header, form url.Values) (*loginReply, error) {
	loginURL := l.env.Config.LoginURL()
	reply, _, err := WithRetry(ctx, l.env.Retry, l.env.log(), func(ctx context.Context, attempt int) (*loginReply, Outcome, error) {
		resp, err := l.env.Transport.PostForm(ctx, loginURL, headers, form, NoRedirect())
		if err != nil {
			return nil, ClassifyError(err), err
		}
		status, header := resp.StatusCode, resp.Header
		body, err := resp.Text()
		if err != nil {
			return nil, Retry, transportError("post", err)
		}
		l.env.log().Debug("login POST attempt %d: HTTP %d", attempt, status)

		switch {
		case status >= 200 && status <= 399:
			return &loginReply{status: status, header: header}, Success, nil
		case status == 419:
			return nil, Terminal, loginFailed(status, "CSRF token expired or invalid")
		case status == 422:
			return nil, Terminal, loginFailed(status, "Validation error")
		case status == 429:
			return nil, Terminal, loginFailed(status, "Rate limited")
		case status >= 500 && status <= 599:
			return nil, Retry, loginFailed(status, fmt.Sprintf("Server error %d", status))
		default:
			return nil, Terminal, loginFailed(status, httpMessage(status, body))
		}
	})
	return reply, err
}

// collectCookies returns the response cookies in header order followed by
// any jar cookies for the base URL that the response did not set.
func (l *LoginEngine) collectCookies(h http.Header) []Cookie {
	domain := l.env.Config.Host()
	var cookies []Cookie
	seen := make(map[string]bool)
	for _, p := range setCookiePairs(h) {
		cookies = append(cookies, newCookie(p.name, p.value, domain))
		seen[p.name] = true
	}
	for _, c := range l.env.Transport.JarCookies(l.env.Config.BaseURL() + "/") {
		if seen[c.Name] || c.Name == "" {
			continue
		}
		cookies = append(cookies, newCookie(c.Name, c.Value, domain))
		seen[c.Name] = true
	}
	return cookies
}
