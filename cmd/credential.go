package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cekunit/cekunit/cmd/common"
	cfgenv "github.com/cekunit/cekunit/common"
	"github.com/cekunit/cekunit/pkg/cekunit"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

var credentialEmail string

var credentialFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "email",
		Usage:       "account to manage (default: USER_EMAIL)",
		Destination: &credentialEmail,
	},
}

// readPassword prompts on the terminal without echo, or reads one line when
// stdin is not a terminal.
var readPassword = func() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func credentialAccount(ctx *cli.Context) (string, error) {
	if email := strings.TrimSpace(credentialEmail); email != "" {
		return email, nil
	}
	vars, err := cekunit.LoadVars(ctx.GlobalString("env-file"))
	if err != nil {
		return "", err
	}
	email := strings.TrimSpace(vars[cfgenv.EmailEnv])
	if email == "" {
		return "", errors.New("no account: pass --email or set USER_EMAIL")
	}
	return email, nil
}

func credentialSet(ctx *cli.Context) error {
	email, err := credentialAccount(ctx)
	if err != nil {
		return common.PrintRuntimeErr(ctx, "credential", "account", err)
	}
	password, err := readPassword()
	if err != nil {
		return common.PrintRuntimeErr(ctx, "credential", "read_password", err)
	}
	if len(password) < cekunit.MinPasswordLength {
		err = fmt.Errorf("password must be at least %d characters", cekunit.MinPasswordLength)
		return common.PrintRuntimeErr(ctx, "credential", "validate", err)
	}
	if err := newKeyring().SetPassword(email, password); err != nil {
		return common.PrintRuntimeErr(ctx, "credential", "set", err)
	}
	fmt.Fprintf(stdout, "Password stored for %s\n", email)
	return nil
}

func credentialDelete(ctx *cli.Context) error {
	email, err := credentialAccount(ctx)
	if err != nil {
		return common.PrintRuntimeErr(ctx, "credential", "account", err)
	}
	if err := newKeyring().DeletePassword(email); err != nil {
		return common.PrintRuntimeErr(ctx, "credential", "delete", err)
	}
	fmt.Fprintf(stdout, "Password removed for %s\n", email)
	return nil
}
