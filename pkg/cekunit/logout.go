package cekunit

import (
	"context"
	"fmt"
	"net/url"
)

// LogoutEngine ends the server session and clears the local one.
type LogoutEngine struct {
	env *Env
}

// NewLogoutEngine returns a LogoutEngine reading from env.
func NewLogoutEngine(env *Env) *LogoutEngine {
	return &LogoutEngine{env: env}
}

// Logout posts the cached CSRF token to the logout endpoint. It succeeds
// without any request when no logged-in session is stored.
func (l *LogoutEngine) Logout(ctx context.Context) error {
	return l.LogoutWithToken(ctx, "")
}

// LogoutWithToken is Logout with an externally supplied token, typically
// one scraped from an authenticated page after a 419. An empty token uses
// the cached one.
func (l *LogoutEngine) LogoutWithToken(ctx context.Context, token string) error {
	log := l.env.log()
	sess, err := l.env.Store.Load()
	if err != nil {
		return err
	}
	if sess == nil || !sess.LoggedIn {
		log.Info("No active session, nothing to log out")
		if err := l.env.Store.Clear(); err != nil {
			log.Error("Failed to clear cache: %v", err)
		}
		return nil
	}
	if token == "" {
		token = sess.CSRFToken
	}

	headers := AttachCookies(l.env.Transport.FormHeaders(), sess.CookieMap())
	form := url.Values{}
	form.Set("_token", token)
	logoutURL := l.env.Config.LogoutURL()

	_, _, err = WithRetry(ctx, l.env.Retry, log, func(ctx context.Context, attempt int) (struct{}, Outcome, error) {
		resp, err := l.env.Transport.PostForm(ctx, logoutURL, headers, form, NoRedirect())
		if err != nil {
			return struct{}{}, ClassifyError(err), err
		}
		status := resp.StatusCode
		body, err := resp.Text()
		if err != nil {
			return struct{}{}, Retry, transportError("post", err)
		}
		log.Debug("logout POST attempt %d: HTTP %d", attempt, status)

		switch {
		case status >= 200 && status <= 299, status == 302, status == 303:
			return struct{}{}, Success, nil
		case status == 419:
			return struct{}{}, Terminal, logoutFailed(status, "CSRF expired")
		case status == 422:
			return struct{}{}, Terminal, logoutFailed(status, "Validation error")
		case status == 429:
			return struct{}{}, Terminal, logoutFailed(status, "Rate limited")
		case status >= 500 && status <= 599:
			return struct{}{}, Retry, logoutFailed(status, fmt.Sprintf("Server error %d", status))
		default:
			return struct{}{}, Terminal, logoutFailed(status, httpMessage(status, body))
		}
	})
	if err != nil {
		return err
	}

	if err := l.env.Store.Clear(); err != nil {
		log.Error("Logged out but failed to clear cache: %v", err)
	}
	log.Info("Logout successful")
	return nil
}
