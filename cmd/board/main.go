package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "board",
		Short:         "Kanban board client for a task store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yml")
	root.PersistentFlags().StringVarP(&opts.storeURL, "store", "s", "", "task store URL (overrides board.store_url)")
	root.PersistentFlags().StringVarP(&opts.email, "email", "e", "", "sign in as this email")
	root.PersistentFlags().StringVarP(&opts.token, "token", "t", "", "identity token, also sent as bearer token")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "log requests to stderr")

	root.AddCommand(showCmd(opts))
	root.AddCommand(addCmd(opts))
	root.AddCommand(moveCmd(opts))
	root.AddCommand(reorderCmd(opts))
	root.AddCommand(editCmd(opts))
	root.AddCommand(deleteCmd(opts))
	root.AddCommand(watchCmd(opts))

	return root
}
