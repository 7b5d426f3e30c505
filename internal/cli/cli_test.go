package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"testing"
)

type flagApp struct {
	verbose bool
	ran     bool
}

func (a *flagApp) Flags(fs *flag.FlagSet) {
	fs.BoolVar(&a.verbose, "verbose", false, "Be verbose.")
}

func (a *flagApp) Run(ctx context.Context, env *Env) error {
	a.ran = true
	return nil
}

func testEnv(args ...string) *Env {
	return &Env{
		Args:   args,
		Getenv: func(string) string { return "" },
		Stdin:  strings.NewReader(""),
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	}
}

func TestRunParsesFlags(t *testing.T) {
	app := new(flagApp)
	if err := Run(context.Background(), app, testEnv("-verbose")); err != nil {
		t.Fatal(err)
	}
	if !app.ran {
		t.Fatal("app didn't run")
	}
	if !app.verbose {
		t.Fatal("-verbose flag was not parsed")
	}
}

func TestRunVersion(t *testing.T) {
	app := new(flagApp)
	err := Run(context.Background(), app, testEnv("-version"))
	if !errors.Is(err, ErrExitVersion) {
		t.Fatalf("want %v, got %v", ErrExitVersion, err)
	}
	if app.ran {
		t.Fatal("app ran with -version flag")
	}
}

func TestRunUnknownFlag(t *testing.T) {
	app := new(flagApp)
	err := Run(context.Background(), app, testEnv("-bogus"))
	if err == nil {
		t.Fatal("want error for unknown flag, got nil")
	}
	if isPrintableError(err) {
		t.Fatalf("flag parse errors should be unprintable, got %v", err)
	}
}
