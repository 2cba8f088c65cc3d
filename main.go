package main

import (
	"fmt"
	"os"

	"github.com/cekunit/cekunit/cmd"
	"github.com/cekunit/cekunit/cmd/common"
)

var (
	version   string
	commit    string
	date      string
	buildType string = "unclassified"
)

var osExit = os.Exit

func main() {
	osExit(runMain(os.Args, func(args []string) error {
		return cmd.Execute(args, cmd.BuildArgs{
			Version:   version,
			Commit:    commit,
			Date:      date,
			BuildType: buildType,
		})
	}))
}

func runMain(args []string, execute func([]string) error) int {
	err := execute(args)
	if err == nil {
		return common.ExitOK
	}
	if !common.IsReported(err) {
		fmt.Printf("cekunit: %s\n", err.Error())
	}
	return common.ExitCode(err)
}
