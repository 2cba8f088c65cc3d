package cekunit

import (
	"time"

	"github.com/cekunit/cekunit/pkg/logger"
)

// Env is the shared context every engine reads from. It is plain data and
// engines never write to it.
type Env struct {
	Config    *Config
	Store     *Store
	Transport *Transport
	Retry     RetryConfig
	Logger    logger.Logger
	Now       func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) log() logger.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logger.NewNopLogger()
}

// tokenPrefix shortens a token for debug output.
func tokenPrefix(token string) string {
	const n = 10
	r := []rune(token)
	if len(r) <= n {
		return token
	}
	return string(r[:n]) + "..."
}
