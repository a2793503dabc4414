// opinfo inspects the kernel registration table: which operators have kernels, for which dtypes and
// formats, and which kernel variant the selector picks for a call site.
package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/gomlx/opinfo/pkg/kernels"
	"github.com/gomlx/opinfo/pkg/opinfo"
	"github.com/gomlx/opinfo/pkg/opinfo/payload"
	"github.com/gomlx/opinfo/pkg/opinfo/report"
	"github.com/gomlx/opinfo/pkg/opinfo/targets"
	"github.com/gomlx/opinfo/pkg/support/fsutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var (
	flagTarget  string
	flagDirs    []string
	flagNoColor bool
)

func main() {
	klog.InitFlags(nil)
	if err := newRootCmd().Execute(); err != nil {
		klog.Errorf("%+v", err)
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "opinfo",
		Short:         "Inspect the kernel registration table and the kernel selection",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagTarget, "target", "",
		"Target to restrict kernels to, one of "+strings.Join(targets.Names(), ", ")+". "+
			"If empty, the $"+targets.EnvTarget+" environment variable is used, if set, otherwise kernels of all targets are considered.")
	flags.StringArrayVar(&flagDirs, "dir", nil,
		"Extra directory with kernel registration payloads (*.json) to register after the built-in kernels. Can be repeated.")
	flags.BoolVar(&flagNoColor, "no-color", false, "Disable colors and other ANSI codes in the output.")
	flags.AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(
		newListCmd(),
		newShowCmd(),
		newSelectCmd(),
		newValidateCmd(),
		newExportCmd(),
	)
	return rootCmd
}

// loadTable returns the frozen table with the built-in kernels and those under --dir.
func loadTable(ctx context.Context) (*opinfo.Table, error) {
	table := opinfo.NewTable()
	if err := kernels.RegisterAll(table); err != nil {
		return nil, err
	}
	for _, dir := range flagDirs {
		dir, err := fsutil.ExpandPath(dir)
		if err != nil {
			return nil, err
		}
		exists, err := fsutil.FileExists(dir)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.Errorf("kernels directory %q does not exist", dir)
		}
		if err := payload.LoadDir(ctx, table, dir); err != nil {
			return nil, errors.WithMessagef(err, "loading kernels from %q", dir)
		}
	}
	table.Freeze()
	return table, nil
}

// target selected by --target or $OPINFO_TARGET, or nil for all targets.
func target() (*targets.Target, error) {
	if flagTarget != "" {
		return targets.Get(flagTarget)
	}
	if os.Getenv(targets.EnvTarget) != "" {
		return targets.Default()
	}
	return nil, nil
}

// keep returns the filter of implementations for the target, or nil if t is nil.
func keep(t *targets.Target) func(*opinfo.Implementation) bool {
	if t == nil {
		return nil
	}
	return t.Accepts
}

func newReporter(cmd *cobra.Command) *report.Reporter {
	return report.New(cmd.OutOrStdout(), flagNoColor)
}
