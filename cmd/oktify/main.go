package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/oktify/internal/model"

	// Register connector implementations.
	_ "github.com/hejijunhao/oktify/internal/connector/okta"
	_ "github.com/hejijunhao/oktify/internal/connector/replay"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "oktify: %v\n", err)
	if !a.started {
		// cobra rejected the invocation before any command ran.
		return exitUsage
	}
	return exitCode(err)
}

type app struct {
	stdout, stderr io.Writer
	started        bool
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "oktify",
		Short: "Audit identity lifecycle changes in an Okta System Log",
		Long: `oktify reads the Okta System Log for an inclusive date window and reports
administrator role changes, user lifecycle transitions, group membership
changes or application assignments as CSV and/or a terminal table.

Credentials are read from OKTA_DOMAIN and OKTA_API_TOKEN (or a .env file).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	for _, c := range model.Categories {
		root.AddCommand(a.auditCmd(c))
	}
	return root
}
