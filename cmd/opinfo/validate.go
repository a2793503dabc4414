package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gomlx/opinfo/pkg/opinfo"
	"github.com/gomlx/opinfo/pkg/opinfo/payload"
	"github.com/gomlx/opinfo/pkg/support/fsutil"
	"github.com/gomlx/opinfo/pkg/support/sets"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate DIR|FILE...",
		Short: "Parse and validate kernel registration payloads",
		Long: "Parse and validate kernel registration payloads, given as files or directories (all *.json files in it).\n\n" +
			"Every payload is checked on its own, and then all of them are registered, after the built-in kernels, " +
			"in a scratch table.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := payloadFiles(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.Errorf("no *.json payloads found in %q", args)
			}
			return validateFiles(cmd, files)
		},
	}
}

// payloadFiles expands directories to their *.json files.
func payloadFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		arg, err := fsutil.ExpandPath(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %q", arg)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, errors.Wrapf(err, "listing %q", arg)
		}
		slices.Sort(matches)
		files = append(files, matches...)
	}
	return files, nil
}

func validateFiles(cmd *cobra.Command, files []string) error {
	table, err := loadTable(cmd.Context())
	if err != nil {
		return err
	}
	builtins := sets.MakeWith(table.Operators()...)
	payloadOps := sets.Make[string]()
	scratch := opinfo.NewTable()
	for _, opName := range table.Operators() {
		for _, impl := range table.Lookup(opName) {
			scratch.MustRegister(impl)
		}
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("validating"),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("payloads"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionClearOnFinish(),
	)
	var failures []error
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err == nil {
			var impl *opinfo.Implementation
			impl, err = payload.Parse(data)
			if err == nil {
				err = scratch.Register(impl)
			}
			if err == nil {
				payloadOps.Insert(impl.OpName)
			}
		}
		if err != nil {
			failures = append(failures, errors.WithMessage(err, file))
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	out := cmd.OutOrStdout()
	for _, err := range failures {
		_, _ = fmt.Fprintf(out, "FAIL %v\n", err)
	}
	klog.V(1).Infof("validated %d payloads, %d failures", len(files), len(failures))
	if len(failures) > 0 {
		return errors.Errorf("%d of %d payloads are invalid", len(failures), len(files))
	}
	_, _ = fmt.Fprintf(out, "OK: %d payloads\n", len(files))
	if added := sets.Sorted(payloadOps.Sub(builtins)); len(added) > 0 {
		_, _ = fmt.Fprintf(out, "New operators: %s\n", strings.Join(added, ", "))
	}
	return nil
}
