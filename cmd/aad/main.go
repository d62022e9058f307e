// Package main provides the aad CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/born-ml/aad/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Printed {
			fmt.Fprintf(os.Stderr, "aad: %v\n", err)
		}
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
