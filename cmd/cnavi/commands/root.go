package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cnavi/lib/telemetry"

	"github.com/spf13/cobra"
)

var verbose *bool
var debug *bool

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log progress.")
	debug = rootCmd.PersistentFlags().BoolP("debug", "d", false, "Log everything and dump every HTTP exchange to .cnavi/http.")
}

var rootCmd = &cobra.Command{
	Use:          "cnavi",
	Short:        "cnavi lists the courses and lectures on Course N@vi.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		switch {
		case *debug:
			level = slog.LevelDebug
		case *verbose:
			level = slog.LevelInfo
		}
		telemetry.InitSlog(level)
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
