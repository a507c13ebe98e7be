// familytree builds family views outside the portal, from a JSON or YAML
// snapshot or straight from the community backend.
//
// Usage:
//
//	familytree show --snapshot data.json --root 2 [--format text|json|yaml]
//	familytree relations --snapshot data.json [--user 2]
//	familytree fetch --backend http://localhost:8000 --email a@b.mg --root 2
//
// The password for fetch is read from --password or FAMILYTREE_PASSWORD.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	verbose bool
	format  string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "familytree",
		Short:         "Build family views from community data",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateFormat(opts.format)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log builder diagnostics to stderr")
	rootCmd.PersistentFlags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text, json or yaml")

	rootCmd.AddCommand(
		newShowCmd(opts),
		newRelationsCmd(opts),
		newFetchCmd(opts),
	)
	return rootCmd
}

// logger returns a console logger at DEBUG when verbose, WARN otherwise.
func (o *globalOptions) logger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if o.verbose {
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := logConfig.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
