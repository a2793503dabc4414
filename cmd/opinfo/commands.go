package main

import (
	"fmt"

	"github.com/gomlx/opinfo/pkg/opinfo"
	"github.com/gomlx/opinfo/pkg/opinfo/export"
	"github.com/gomlx/opinfo/pkg/support/fsutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the operators with registered kernels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := target()
			if err != nil {
				return err
			}
			table, err := loadTable(cmd.Context())
			if err != nil {
				return err
			}
			r := newReporter(cmd)
			r.Summary(table, keep(t))
			r.Operators(table, keep(t))
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show OP...",
		Short: "Show every kernel of the given operators, with their variants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := target()
			if err != nil {
				return err
			}
			table, err := loadTable(cmd.Context())
			if err != nil {
				return err
			}
			r := newReporter(cmd)
			for _, opName := range args {
				impls := table.Lookup(opName)
				if len(impls) == 0 {
					return &opinfo.UnknownOperatorError{OpName: opName, Suggestions: table.Suggest(opName)}
				}
				if t != nil {
					impls = t.Filter(impls)
				}
				if len(impls) == 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%q has no kernel for target %q\n", opName, t.Name)
				}
				for _, impl := range impls {
					r.Implementation(impl)
				}
			}
			return nil
		},
	}
}

func newSelectCmd() *cobra.Command {
	var inputs, outputs []string
	cmd := &cobra.Command{
		Use:   "select OP --in DTYPE:FORMAT... [--out DTYPE:FORMAT...]",
		Short: "Select the kernel variant for a call site",
		Long: "Select the kernel variant for a call site, and print it or, if none matches, every variant tried.\n\n" +
			"Operands are given as \"dtype:format\" (e.g. \"float16:DefaultFormat\"), the format defaults to DefaultFormat. " +
			"For outputs \"*\" can be used as a wildcard for either part.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			call := opinfo.CallSite{OpName: args[0]}
			for _, s := range inputs {
				o, err := opinfo.ParseOperand(s)
				if err != nil {
					return err
				}
				call.Inputs = append(call.Inputs, o)
			}
			for _, s := range outputs {
				o, err := opinfo.ParseOperand(s)
				if err != nil {
					return err
				}
				call.Outputs = append(call.Outputs, o)
			}
			t, err := target()
			if err != nil {
				return err
			}

			table, err := loadTable(cmd.Context())
			if err != nil {
				return err
			}
			selector := opinfo.NewSelector(table)
			var selection opinfo.Selection
			if t != nil {
				selection, err = t.Select(selector, call)
			} else {
				selection, err = selector.Select(call)
			}
			r := newReporter(cmd)
			var noKernel *opinfo.NoCompatibleKernelError
			switch {
			case err == nil:
				r.Selection(call, selection)
				return nil
			case errors.As(err, &noKernel):
				r.Mismatches(noKernel)
				return errors.Errorf("no compatible kernel for %s", call)
			default:
				return err
			}
		},
	}
	cmd.Flags().StringArrayVar(&inputs, "in", nil, "Input operand, in order. Can be repeated.")
	cmd.Flags().StringArrayVar(&outputs, "out", nil, "Output operand, in order. Can be repeated. If not given, any output is accepted.")
	return cmd
}

func newExportCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "export --db FILE",
		Short: "Export the registration table to a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				return errors.New("--db is required")
			}
			dbPath, err := fsutil.ExpandPath(dbPath)
			if err != nil {
				return err
			}
			table, err := loadTable(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := export.WriteFile(cmd.Context(), dbPath, table)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d kernels (%d variants) to %q\n",
				stats.Implementations, stats.Variants, dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Path of the SQLite database to create. It is overwritten if it exists.")
	return cmd
}
