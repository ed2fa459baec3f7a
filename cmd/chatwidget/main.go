package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatwidget/cmd/chatwidget/cmds"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCmd, err := cmds.NewRootCommand()
	if err == nil {
		err = rootCmd.ExecuteContext(ctx)
	}
	stop()
	cobra.CheckErr(err)
}
