// Package common provides shared helpers for the CLI commands: error
// printing, help display, version output and exit codes.
package common

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cekunit/cekunit/pkg/cekunit"
	"github.com/urfave/cli"
)

// VersionCmdStr holds the formatted version string displayed by the version command.
// It is populated at runtime by Execute with build-time information.
var VersionCmdStr string

var (
	showAppHelpAndExit = cli.ShowAppHelpAndExit
	showCommandHelp    = cli.ShowCommandHelp
)

// Exit codes returned by the binary, grouped by error class.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitConfig    = 2
	ExitAuth      = 3
	ExitHTTP      = 4
	ExitStorage   = 5
	ExitTransport = 6
)

// Help displays help information for the application or a specific command.
// If no argument is provided or the argument is "help", it displays the
// application-level help and exits.
func Help(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if arg == "" || arg == "help" {
		fmt.Printf("%s %s\n", ctx.App.Name, ctx.App.Version)
		showAppHelpAndExit(ctx, 0)
		return nil
	}
	err := showCommandHelp(ctx, arg)
	if err != nil {
		return PrintErrWithHelp(ctx, err)
	}
	return nil
}

// GetVersion prints the version string to stdout and returns nil.
func GetVersion(ctx *cli.Context) error {
	fmt.Println(VersionCmdStr)
	return nil
}

// ReportedError marks an error that has already been printed to the user.
type ReportedError struct {
	Err error
}

func (r *ReportedError) Error() string { return r.Err.Error() }

func (r *ReportedError) Unwrap() error { return r.Err }

// IsReported reports whether err was already printed by PrintRuntimeErr.
func IsReported(err error) bool {
	var r *ReportedError
	return errors.As(err, &r)
}

// PrintRuntimeErr formats and prints a runtime error message to stdout and
// returns it wrapped as a ReportedError so the caller can still derive an
// exit code. The ctx parameter may be nil, in which case the application
// name is derived from os.Args[0].
func PrintRuntimeErr(ctx *cli.Context, cmd, action string, err error) error {
	if err == nil {
		fmt.Println("err is nil", "[", cmd, "|", action, "]")
		return nil
	}
	var name string
	if ctx != nil && ctx.App != nil {
		name = ctx.App.HelpName
	} else {
		name = os.Args[0]
	}
	fmt.Printf("%s: %s[%s]: %s\n", name, cmd, action, err.Error())
	return &ReportedError{Err: err}
}

// ExitCode maps an error to the process exit status by its class.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var e *cekunit.Error
	if !errors.As(err, &e) {
		return ExitFailure
	}
	switch e.Kind.Class() {
	case cekunit.ClassConfig:
		return ExitConfig
	case cekunit.ClassAuth:
		return ExitAuth
	case cekunit.ClassHTTP:
		return ExitHTTP
	case cekunit.ClassStorage:
		return ExitStorage
	case cekunit.ClassTransport:
		return ExitTransport
	default:
		return ExitFailure
	}
}

// PrintErrWithCmdHelp prints the error message followed by the current
// command's help text.
func PrintErrWithCmdHelp(ctx *cli.Context, err error) error {
	return printErrWithCallback(
		ctx,
		err,
		func() {
			err := showCommandHelp(ctx, ctx.Command.Name)
			if err != nil {
				fmt.Println(err.Error())
			}
		},
	)
}

// PrintErrWithHelp prints the error message followed by the application-level
// help text and exits with status code 1.
func PrintErrWithHelp(ctx *cli.Context, err error) error {
	return printErrWithCallback(
		ctx,
		err,
		func() {
			showAppHelpAndExit(ctx, 1)
		},
	)
}

func printErrWithCallback(ctx *cli.Context, err error, callback func()) error {
	if err == nil {
		return nil
	}
	estr := strings.ToLower(err.Error())
	if estr == "flag: help requested" {
		return Help(ctx)
	}
	fmt.Printf("%s: %s\n\n", ctx.App.HelpName, err.Error())
	callback()
	return nil
}

// UsageErrorCallback handles usage errors from the CLI framework.
// It is designed to be used as the OnUsageError callback for cli.App and cli.Command.
func UsageErrorCallback(ctx *cli.Context, err error, _ bool) error {
	if ctx.Command.Name != "" {
		return PrintErrWithCmdHelp(ctx, err)
	}
	return PrintErrWithHelp(ctx, err)
}

// Beaut centers a string within a field of width n by padding with spaces.
// If n minus the string length is odd, an extra space is appended at the end.
func Beaut(s string, n int) (b string) {
	n1 := len(s)
	x := n - n1
	if x < 0 {
		return s
	}
	x1 := x / 2
	w := string(
		replic(' ', x1),
	)
	b = w
	b += s
	b += w
	if x%2 != 0 {
		b += " "
	}
	return
}

func replic[aT any](v aT, n int) []aT {
	a := make([]aT, n)
	for i := range a {
		a[i] = v
	}
	return a
}
