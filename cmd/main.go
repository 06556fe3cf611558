package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xhad/docchat/pkg/logger"
)

func main() {
	if err := rootCMD().Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func rootCMD() *cobra.Command {
	var opts globalOptions

	root := &cobra.Command{
		Use:           "docchat",
		Short:         "Chat with your documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is normal.
			_ = godotenv.Load()
			logger.SetVerbose(opts.verbose)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default searches config.yaml, ~/.config/docchat, /etc/docchat)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		chatCMD(&opts),
		ingestCMD(&opts),
		searchCMD(&opts),
		serveCMD(&opts),
	)
	return root
}

type globalOptions struct {
	configPath string
	verbose    bool
}
