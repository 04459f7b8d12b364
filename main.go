package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/e3sm/warehouse/cmd"
	"github.com/e3sm/warehouse/internal/output"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		output.Error(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
