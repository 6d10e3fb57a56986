package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/extremevalue/quantvalid/internal/log"
)

const appName = "quantvalid"

var (
	flagConfigPath string
	flagWorkspace  string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Validate trading-strategy candidates through the C1-C9 pipeline",
		Long: `quantvalid drives a trading-strategy candidate through the full
validation pipeline: structural verification, data-availability audit,
code generation, walk-forward backtesting, statistical and regime
checks, and a final VALIDATED/CONDITIONAL/INVALIDATED/BLOCKED
determination — reading and writing the workspace file tree described
in the configuration surface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfigPath, "config", "config.yaml", "path to the runtime configuration document")
	root.PersistentFlags().StringVar(&flagWorkspace, "workspace", "", "workspace root (overrides config.workspace_dir)")

	root.AddCommand(newVerifyCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newRunAllCmd())

	return root
}

// Execute builds the command tree and runs it against os.Args.
func Execute(ctx context.Context) error {
	zl := log.New()
	root := newRootCmd()
	root.SetContext(withLogger(ctx, zl))
	return root.Execute()
}
