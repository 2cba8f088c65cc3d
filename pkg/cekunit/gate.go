package cekunit

import (
	"net/http"
	"net/url"
)

// Gate guards authenticated requests. It only reads the store, apart from
// deleting a session that can no longer authenticate, and never touches
// the network.
type Gate struct {
	env *Env
}

// NewGate returns a Gate reading from env.
func NewGate(env *Env) *Gate {
	return &Gate{env: env}
}

// Require returns the stored session if it is logged in and carries a
// token. Otherwise the store is cleared and a NotAuthenticated error is
// returned.
func (g *Gate) Require() (*Session, error) {
	sess, err := g.env.Store.Load()
	if err != nil {
		return nil, err
	}
	if sess.Valid() {
		return sess, nil
	}
	if sess != nil {
		if err := g.env.Store.Clear(); err != nil {
			g.env.log().Error("Failed to clear stale session: %v", err)
		}
	}
	return nil, notAuthenticated()
}

// HeadersFor returns User-Agent plus the session's Cookie header.
func (g *Gate) HeadersFor(sess *Session) http.Header {
	return AttachCookies(g.env.Transport.DefaultHeaders(), sess.CookieMap())
}

// FormHeadersFor returns HeadersFor plus the form content type.
func (g *Gate) FormHeadersFor(sess *Session) http.Header {
	return AttachCookies(g.env.Transport.FormHeaders(), sess.CookieMap())
}

// FormWithToken returns a copy of form carrying the session's _token.
func (g *Gate) FormWithToken(sess *Session, form url.Values) url.Values {
	out := make(url.Values, len(form)+1)
	for k, vs := range form {
		out[k] = append([]string(nil), vs...)
	}
	out.Set("_token", sess.CSRFToken)
	return out
}
