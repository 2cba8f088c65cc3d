package cekunit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// Kind identifies the failure category of an *Error.
type Kind int

const (
	KindUnknown Kind = iota

	// Config
	KindConfigMissing
	KindConfigEmpty
	KindConfigInvalid
	KindConfigInvalidURL

	// Transport
	KindTimeout
	KindConnectFailed
	KindReadFailed

	// Auth
	KindLoginFailed
	KindLogoutFailed
	KindNotAuthenticated
	KindCSRFExpired
	KindCSRFInvalid
	KindCSRFNotFound

	// HTTP status
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindRateLimited
	KindServerError
	KindHTTPOther

	// Storage
	KindCacheUnreadable
	KindCacheUnwritable
	KindCacheMalformed

	// Parsing
	KindHTMLParse
	KindJSONParse
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown error",
	KindConfigMissing:    "missing environment variable",
	KindConfigEmpty:      "empty environment variable",
	KindConfigInvalid:    "invalid configuration",
	KindConfigInvalidURL: "invalid URL",
	KindTimeout:          "request timed out",
	KindConnectFailed:    "connection failed",
	KindReadFailed:       "failed to read response",
	KindLoginFailed:      "login failed",
	KindLogoutFailed:     "logout failed",
	KindNotAuthenticated: "not authenticated",
	KindCSRFExpired:      "CSRF token expired",
	KindCSRFInvalid:      "CSRF token invalid",
	KindCSRFNotFound:     "CSRF token not found",
	KindUnauthorized:     "unauthorized",
	KindForbidden:        "forbidden",
	KindNotFound:         "not found",
	KindValidation:       "validation error",
	KindRateLimited:      "rate limited",
	KindServerError:      "server error",
	KindHTTPOther:        "unexpected HTTP status",
	KindCacheUnreadable:  "cache unreadable",
	KindCacheUnwritable:  "cache unwritable",
	KindCacheMalformed:   "cache malformed",
	KindHTMLParse:        "HTML parse error",
	KindJSONParse:        "JSON parse error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Class groups kinds into the top-level taxonomy.
type Class int

const (
	ClassUnknown Class = iota
	ClassConfig
	ClassTransport
	ClassAuth
	ClassHTTP
	ClassStorage
	ClassParsing
)

// Class returns the taxonomy group of k.
func (k Kind) Class() Class {
	switch {
	case k >= KindConfigMissing && k <= KindConfigInvalidURL:
		return ClassConfig
	case k >= KindTimeout && k <= KindReadFailed:
		return ClassTransport
	case k >= KindLoginFailed && k <= KindCSRFNotFound:
		return ClassAuth
	case k >= KindUnauthorized && k <= KindHTTPOther:
		return ClassHTTP
	case k >= KindCacheUnreadable && k <= KindCacheMalformed:
		return ClassStorage
	case k >= KindHTMLParse && k <= KindJSONParse:
		return ClassParsing
	}
	return ClassUnknown
}

// Error is the single error type returned across the package boundary.
// Use errors.As to inspect it, or errors.Is against the Err* sentinels,
// which match on Kind alone.
type Error struct {
	Kind Kind
	// Op is the operation that failed (e.g., "login", "save").
	Op string
	// Name is the offending variable or field for config errors.
	Name string
	// Status is the HTTP status code, zero when no response was received.
	Status int
	// Msg is the short human message.
	Msg string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
// Format: "op: kind: name: msg: cause", empty parts omitted.
func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.String())
	if e.Name != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Name)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause, enabling errors.Is/As chaining.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind. A 419 response
// also matches ErrCSRFExpired whatever the surrounding kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	// A malformed URL is a specific invalid value.
	if t.Kind == KindConfigInvalid && e.Kind == KindConfigInvalidURL {
		return true
	}
	return t.Kind == KindCSRFExpired && e.Status == 419
}

// Sentinels for errors.Is.
var (
	ErrConfigMissing    = &Error{Kind: KindConfigMissing}
	ErrConfigEmpty      = &Error{Kind: KindConfigEmpty}
	ErrConfigInvalid    = &Error{Kind: KindConfigInvalid}
	ErrConfigInvalidURL = &Error{Kind: KindConfigInvalidURL}

	ErrTimeout       = &Error{Kind: KindTimeout}
	ErrConnectFailed = &Error{Kind: KindConnectFailed}
	ErrReadFailed    = &Error{Kind: KindReadFailed}

	ErrLoginFailed      = &Error{Kind: KindLoginFailed}
	ErrLogoutFailed     = &Error{Kind: KindLogoutFailed}
	ErrNotAuthenticated = &Error{Kind: KindNotAuthenticated}
	ErrCSRFExpired      = &Error{Kind: KindCSRFExpired}
	ErrCSRFInvalid      = &Error{Kind: KindCSRFInvalid}
	ErrCSRFNotFound     = &Error{Kind: KindCSRFNotFound}

	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrRateLimited  = &Error{Kind: KindRateLimited}
	ErrServerError  = &Error{Kind: KindServerError}
	ErrHTTPOther    = &Error{Kind: KindHTTPOther}

	ErrCacheUnreadable = &Error{Kind: KindCacheUnreadable}
	ErrCacheUnwritable = &Error{Kind: KindCacheUnwritable}
	ErrCacheMalformed  = &Error{Kind: KindCacheMalformed}

	ErrHTMLParse = &Error{Kind: KindHTMLParse}
	ErrJSONParse = &Error{Kind: KindJSONParse}
)

// ErrBodyConsumed is returned when a Response body is read twice.
var ErrBodyConsumed = errors.New("response body already consumed")

// KindOf returns the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsCSRFExpired reports whether err was caused by a 419 response.
// Orchestrators use it to decide whether a fresh token is worth fetching.
func IsCSRFExpired(err error) bool {
	return errors.Is(err, ErrCSRFExpired)
}

const maxPreview = 200

// preview reduces an HTML or text body to a short single message:
// everything from the first '<' on is dropped, then the result is trimmed
// and capped at 200 characters.
func preview(body string) string {
	if i := strings.IndexByte(body, '<'); i >= 0 {
		body = body[:i]
	}
	body = strings.TrimSpace(body)
	r := []rune(body)
	if len(r) > maxPreview {
		body = string(r[:maxPreview])
	}
	return body
}

func httpMessage(status int, body string) string {
	p := preview(body)
	if p == "" {
		return fmt.Sprintf("HTTP %d", status)
	}
	return fmt.Sprintf("HTTP %d: %s", status, p)
}

func configError(kind Kind, name, reason string) *Error {
	return &Error{Kind: kind, Op: "config", Name: name, Msg: reason}
}

func loginFailed(status int, msg string) *Error {
	return &Error{Kind: KindLoginFailed, Status: status, Msg: msg}
}

func logoutFailed(status int, msg string) *Error {
	return &Error{Kind: KindLogoutFailed, Status: status, Msg: msg}
}

func storageError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Op: "cache", Name: path, Err: err}
}

func notAuthenticated() *Error {
	return &Error{Kind: KindNotAuthenticated, Msg: "no valid session, run login first"}
}

// StatusError maps a non-2xx response of an authenticated request to a
// typed error. body is used for the preview of unclassified statuses.
func StatusError(op string, status int, body string) *Error {
	e := &Error{Op: op, Status: status}
	switch {
	case status == 401:
		e.Kind = KindUnauthorized
	case status == 403:
		e.Kind = KindForbidden
	case status == 404:
		e.Kind = KindNotFound
	case status == 419:
		e.Kind = KindCSRFExpired
	case status == 422:
		e.Kind = KindValidation
	case status == 429:
		e.Kind = KindRateLimited
	case status >= 500 && status <= 599:
		e.Kind = KindServerError
		e.Msg = fmt.Sprintf("Server error %d", status)
	default:
		e.Kind = KindHTTPOther
		e.Msg = httpMessage(status, body)
	}
	return e
}

// transportError classifies a failed round trip into timeout,
// connect-failed or read-failed. The cause is kept for errors.Is.
func transportError(op string, err error) *Error {
	var te *Error
	if errors.As(err, &te) && te.Kind.Class() == ClassTransport {
		return te
	}
	e := &Error{Op: op, Err: err}
	var netErr net.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		e.Kind = KindTimeout
	case errors.As(err, &dnsErr):
		e.Kind = KindConnectFailed
	case errors.As(err, &opErr) && opErr.Op == "dial":
		e.Kind = KindConnectFailed
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		e.Kind = KindReadFailed
	default:
		var uerr *url.Error
		if errors.As(err, &uerr) {
			e.Kind = KindConnectFailed
		} else {
			e.Kind = KindReadFailed
		}
	}
	return e
}

// interrupted reports a retry loop stopped by its context while waiting.
// The kind follows the last attempt's error so callers still see its class;
// both causes stay reachable through errors.Is.
func interrupted(ctxErr, last error) *Error {
	e := &Error{Op: "retry", Msg: "interrupted while waiting to retry", Err: errors.Join(ctxErr, last)}
	var le *Error
	switch {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		e.Kind = KindTimeout
	case errors.As(last, &le):
		e.Kind, e.Status = le.Kind, le.Status
	default:
		e.Kind = transportError("retry", last).Kind
	}
	return e
}
