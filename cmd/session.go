package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cekunit/cekunit/cmd/common"
	cfgenv "github.com/cekunit/cekunit/common"
	"github.com/cekunit/cekunit/pkg/cekunit"
	"github.com/urfave/cli"
)

var stdout io.Writer = os.Stdout

var (
	forceLogout bool
	maxAge      time.Duration
	forceClean  bool

	logoutFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "force, f",
			Usage:       "remove the local session even if the server refuses the logout",
			Destination: &forceLogout,
		},
	}
	statusFlags = []cli.Flag{
		cli.DurationFlag{
			Name:        "max-age, m",
			Usage:       "report whether the session is younger than this duration",
			Destination: &maxAge,
		},
	}
	cleanFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "yes, y",
			Usage:       "do not ask for confirmation",
			Destination: &forceClean,
		},
	}
)

func login(ctx *cli.Context) error {
	client, l, err := newClient(ctx)
	if err != nil {
		return common.PrintRuntimeErr(ctx, "login", "load_config", err)
	}
	defer l.Close()
	sctx, cancel := signalContext()
	defer cancel()

	sess, err := client.Login(sctx)
	if err != nil {
		return common.PrintRuntimeErr(ctx, "login", "login", err)
	}
	fmt.Fprintf(stdout, "Logged in as %s (%d cookies)\n", client.Config().Credential().Email, len(sess.Cookies))
	fmt.Fprintf(stdout, "Session saved to %s\n", client.Store().Path())
	return nil
}

func logout(ctx *cli.Context) error {
	client, l, err := newClient(ctx)
	if err != nil {
		return common.PrintRuntimeErr(ctx, "logout", "load_config", err)
	}
	defer l.Close()
	sctx, cancel := signalContext()
	defer cancel()

	err = client.Logout(sctx)
	if err == nil {
		fmt.Fprintln(stdout, "Logged out")
		return nil
	}
	if !forceLogout || cekunit.KindOf(err).Class() == cekunit.ClassConfig {
		return common.PrintRuntimeErr(ctx, "logout", "logout", err)
	}
	l.Warning("Server logout failed: %v", err)
	if err := client.Clean(); err != nil {
		return common.PrintRuntimeErr(ctx, "logout", "clean", err)
	}
	fmt.Fprintln(stdout, "Server logout failed, local session removed")
	return nil
}

func status(ctx *cli.Context) error {
	client, l, err := newClient(ctx)
	if err != nil {
		return common.PrintRuntimeErr(ctx, "status", "load_config", err)
	}
	defer l.Close()

	report, err := client.Status(maxAge)
	if err != nil {
		return common.PrintRuntimeErr(ctx, "status", "load_session", err)
	}
	printStatus(stdout, client.Config(), report, maxAge)
	return nil
}

func printStatus(w io.Writer, cfg *cekunit.Config, r *cekunit.StatusReport, maxAge time.Duration) {
	fmt.Fprintln(w, common.Beaut("Configuration", 40))
	fmt.Fprintf(w, "%-12s %s\n", "Account:", cfg.Credential())
	fmt.Fprintf(w, "%-12s %s\n", "Base URL:", cfg.BaseURL())
	fmt.Fprintln(w, "Endpoints:")
	endpoints := cfg.Endpoints()
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-28s /%s\n", name, endpoints[name])
	}

	fmt.Fprintln(w, common.Beaut("Session", 40))
	fmt.Fprintf(w, "%-12s %s\n", "Cache:", r.Path)
	switch {
	case !r.Exists:
		fmt.Fprintf(w, "%-12s %s\n", "State:", "none")
		return
	case r.LoggedIn:
		fmt.Fprintf(w, "%-12s %s\n", "State:", "logged in")
	default:
		fmt.Fprintf(w, "%-12s %s\n", "State:", "logged out")
	}
	fmt.Fprintf(w, "%-12s %d\n", "Cookies:", r.Cookies)
	fmt.Fprintf(w, "%-12s %s\n", "Age:", r.Age.Truncate(time.Second))
	if maxAge > 0 {
		fresh := "no"
		if r.Fresh {
			fresh = "yes"
		}
		fmt.Fprintf(w, "%-12s %s (max age %s)\n", "Fresh:", fresh, maxAge)
	}
}

// clean only needs the cache location, so it works without credentials.
func clean(ctx *cli.Context) error {
	vars, err := cekunit.LoadVars(ctx.GlobalString("env-file"))
	if err != nil {
		return common.PrintRuntimeErr(ctx, "clean", "load_config", err)
	}
	store, err := cekunit.NewStore(strings.TrimSpace(vars[cfgenv.CacheDirEnv]))
	if err != nil {
		return common.PrintRuntimeErr(ctx, "clean", "open_cache", err)
	}
	if !confirm(command("clean"), forceClean) {
		return nil
	}
	if err := store.Clear(); err != nil {
		return common.PrintRuntimeErr(ctx, "clean", "clear", err)
	}
	fmt.Fprintf(stdout, "Removed %s\n", store.Path())
	return nil
}
