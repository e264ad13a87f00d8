package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dot5enko/wavdump/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.ExecuteContext(ctx); err != nil {
		stop()
		commands.Exit(err)
	}
}
