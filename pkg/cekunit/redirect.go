package cekunit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// DefaultMaxRedirects is the maximum number of redirect hops a GET follows.
const DefaultMaxRedirects = 10

var (
	// ErrTooManyRedirects is returned when a redirect chain exceeds the configured max hops.
	ErrTooManyRedirects = errors.New("redirect loop detected")

	// ErrCrossProtocolRedirect is returned when a redirect leaves http/https.
	ErrCrossProtocolRedirect = errors.New("cross-protocol redirect not supported")
)

type noRedirectKey struct{}

func withNoRedirect(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRedirectKey{}, true)
}

func isHTTPScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}

// RedirectPolicy returns a CheckRedirect function that:
// 1. Hands back the 3xx response itself for requests marked NoRedirect
// 2. Enforces a maximum number of redirect hops
// 3. Rejects redirects leaving http/https
//
// Auth POSTs are marked NoRedirect so their Set-Cookie headers and status
// are observed on the original response.
func RedirectPolicy(maxRedirects int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if v, _ := req.Context().Value(noRedirectKey{}).(bool); v {
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			lastURL := via[len(via)-1].URL.String()
			return fmt.Errorf("%w: exceeded %d hops (last URL: %s)",
				ErrTooManyRedirects, maxRedirects, lastURL)
		}
		if len(via) > 0 {
			prev := via[len(via)-1]
			if isHTTPScheme(prev.URL.Scheme) && !isHTTPScheme(req.URL.Scheme) {
				return fmt.Errorf("%w: %s -> %s",
					ErrCrossProtocolRedirect, prev.URL.Scheme, req.URL.Scheme)
			}
		}
		return nil
	}
}
