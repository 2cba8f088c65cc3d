package cmd

import (
	"fmt"
	"runtime"

	"github.com/cekunit/cekunit/cmd/common"
	"github.com/urfave/cli"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "env-file, e",
		Usage:  "load configuration from this .env file",
		EnvVar: "CEKUNIT_ENV_FILE",
	},
	cli.BoolFlag{
		Name:  "debug, d",
		Usage: "enable debug logging",
	},
	cli.StringFlag{
		Name:   "log-file",
		Usage:  "also append debug logs to this file",
		EnvVar: "CEKUNIT_LOG_FILE",
	},
}

func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:                  "cekunit",
		HelpName:              "cekunit",
		Usage:                 "Session manager for form-login web applications.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "cekunit [global options] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:               "login",
				Usage:              "log in and store the session",
				Description:        LoginDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             login,
			},
			{
				Name:               "logout",
				Usage:              "log out and remove the stored session",
				Description:        LogoutDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             logout,
				Flags:              logoutFlags,
			},
			{
				Name:                   "status",
				Aliases:                []string{"s"},
				Usage:                  "show configuration and session state",
				Description:            StatusDescription,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				OnUsageError:           common.UsageErrorCallback,
				Action:                 status,
				Flags:                  statusFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "clean",
				Aliases:            []string{"c"},
				Usage:              "remove the stored session",
				Description:        CleanDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             clean,
				Flags:              cleanFlags,
			},
			{
				Name:        "credential",
				Usage:       "manage the password stored in the OS keyring",
				Description: CredentialDescription,
				Subcommands: []cli.Command{
					{
						Name:         "set",
						Usage:        "store the password",
						OnUsageError: common.UsageErrorCallback,
						Action:       credentialSet,
						Flags:        credentialFlags,
					},
					{
						Name:         "delete",
						Usage:        "remove the stored password",
						OnUsageError: common.UsageErrorCallback,
						Action:       credentialDelete,
						Flags:        credentialFlags,
					},
				},
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of cekunit",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
