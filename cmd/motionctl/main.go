package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/motionbridge/internal/client"
)

var (
	serverURL string
	timeout   time.Duration
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "motionctl",
		Short:         "drive a motion bridge devtools server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("MOTIONCTL_SERVER")
	if defaultURL == "" {
		defaultURL = "http://localhost:8000"
	}
	root.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "devtools server URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(
		newHealthCmd(),
		newTreeCmd(),
		newPageCmd(),
		newRunCmd(),
		newConsoleCmd(),
		newResetCmd(),
		newLogLevelCmd(),
		newQueryCmd(),
		newInvokeCmd(),
		newAnimateCmd(),
		newStopCmd(),
		newRegistryCmd(),
		newSceneCmd(),
		newWatchCmd(),
		newEaseCmd(),
	)
	return root
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithTimeout(timeout))
}
