package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/cekunit/cekunit/pkg/cekunit"
	"github.com/cekunit/cekunit/pkg/credman/keyring"
	"github.com/cekunit/cekunit/pkg/logger"
	"github.com/urfave/cli"
)

type passwordStore interface {
	Lookup(email string) (string, error)
	SetPassword(email, password string) error
	DeletePassword(email string) error
}

var (
	newKeyring = func() passwordStore { return keyring.NewKeyring() }
	// extra client options, used by tests to inject a clock or retry config
	clientOptions []cekunit.Option
)

var logOutput io.Writer = os.Stderr

func newLogger(debug bool) logger.Logger {
	l := log.New(logOutput, "cekunit: ", log.LstdFlags)
	if debug {
		return logger.NewDebugLogger(l)
	}
	return logger.NewStandardLogger(l)
}

// loadConfig reads the configuration selected by the global flags, falling
// back to the keyring for the password.
func loadConfig(ctx *cli.Context) (*cekunit.Config, error) {
	kr := newKeyring()
	return cekunit.LoadConfig(cekunit.LoadOptions{
		EnvFile:        ctx.GlobalString("env-file"),
		PasswordLookup: kr.Lookup,
	})
}

func newClient(ctx *cli.Context) (*cekunit.Client, logger.Logger, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	l := newLogger(ctx.GlobalBool("debug") || cfg.Options().Debug)
	if path := ctx.GlobalString("log-file"); path != "" {
		fl, err := logger.NewFileLogger(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		l = logger.NewMultiLogger(l, fl)
	}
	opts := append([]cekunit.Option{cekunit.WithLogger(l)}, clientOptions...)
	client, err := cekunit.New(cfg, opts...)
	if err != nil {
		_ = l.Close()
		return nil, nil, err
	}
	return client, l, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
