// Command avisctl evaluates patients and browses the drug compendium from a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/crishurazvi/avis-diabeto/internal/cli"
)

var version = "1.0.0"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "avisctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
