package main

import (
	"errors"
	"os"
	"testing"

	"github.com/cekunit/cekunit/cmd/common"
	"github.com/cekunit/cekunit/pkg/cekunit"
)

func TestMainVersion(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"cekunit", "version"}
	defer func() { os.Args = oldArgs }()
	oldExit := osExit
	osExit = func(code int) {
		if code != 0 {
			t.Fatalf("unexpected exit code: %d", code)
		}
	}
	defer func() { osExit = oldExit }()
	main()
}

func TestRunMainError(t *testing.T) {
	code := runMain([]string{"cekunit"}, func([]string) error {
		return errors.New("boom")
	})
	if code != common.ExitFailure {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestRunMainTypedError(t *testing.T) {
	code := runMain([]string{"cekunit"}, func([]string) error {
		return &common.ReportedError{Err: &cekunit.Error{Kind: cekunit.KindConfigMissing, Name: "USER_EMAIL"}}
	})
	if code != common.ExitConfig {
		t.Fatalf("expected exit code %d, got %d", common.ExitConfig, code)
	}
}

func TestRunMainSuccess(t *testing.T) {
	code := runMain([]string{"cekunit"}, func([]string) error { return nil })
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}
