package cekunit

import "time"

// Cookie is a session cookie as recorded at login. Only Name and Value are
// replayed; the other attributes are kept for the on-disk record.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	HTTPOnly bool   `json:"http_only"`
	Secure   bool   `json:"secure"`
}

// Session is the single persisted authentication record.
//
// When LoggedIn is true CSRFToken is non-empty. Cookies may be empty only
// if a warning was logged at login.
type Session struct {
	Cookies   []Cookie `json:"cookies"`
	CSRFToken string   `json:"csrf_token"`
	LoggedIn  bool     `json:"logged_in"`
	// Timestamp is in seconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Cookies = append([]Cookie{}, s.Cookies...)
	return &c
}

// CookieMap returns the name/value pairs used for replay. Later cookies
// with the same name win.
func (s *Session) CookieMap() map[string]string {
	return CookieMap(s.Cookies)
}

// Age returns how long ago the session was written.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(s.Timestamp, 0))
}

// Valid reports whether the session can authenticate a request.
func (s *Session) Valid() bool {
	return s != nil && s.LoggedIn && s.CSRFToken != ""
}

func newCookie(name, value, domain string) Cookie {
	return Cookie{
		Name:     name,
		Value:    value,
		Domain:   domain,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
	}
}
