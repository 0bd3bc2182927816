// Command ytdash synthesizes DASH manifests for YouTube streams, either as an HTTP service
// or one request at a time from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "ytdash",
		Short:         "Synthesize DASH manifests for YouTube streams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to the YAML config file")
	root.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "L", "", "Log level (error, warn, info, debug); overrides the config")

	root.AddCommand(newServeCmd(opts), newGenerateCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
