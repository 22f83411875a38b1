package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "innoguard",
		Short:         "InnoGuard secure data access client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to config.yaml")
	root.PersistentFlags().Bool("verbose", false, "log backend requests")

	root.AddCommand(loginCmd())
	root.AddCommand(patientsCmd())
	root.AddCommand(browseCmd())
	root.AddCommand(downloadCmd())
	root.AddCommand(sessionCmd())
	return root
}
