// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package payload

import (
	"context"
	"io/fs"
	"os"
	"runtime"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opinfo/pkg/opinfo"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Load parses each payload and registers it in table, in the given order.
// It stops at the first error: the payloads before it remain registered.
func Load(table *opinfo.Table, payloads ...[]byte) error {
	for ii, data := range payloads {
		impl, err := Parse(data)
		if err != nil {
			return errors.WithMessagef(err, "parsing payload #%d", ii)
		}
		if err := table.Register(impl); err != nil {
			return errors.WithMessagef(err, "registering payload #%d", ii)
		}
	}
	return nil
}

// MustLoad is like Load but panics on error: built-in kernel descriptors are expected to always be
// well-formed, and a failure must abort the program startup.
func MustLoad(table *opinfo.Table, payloads ...[]byte) {
	if err := Load(table, payloads...); err != nil {
		exceptions.Panicf("failed to load built-in kernel descriptors: %+v", err)
	}
}

// LoadFS parses every file in fsys matching pattern (see fs.Glob) and registers them in table.
//
// Files are parsed concurrently, but registered sequentially in lexical order of their names, so the
// priority among kernels of the same operator doesn't depend on scheduling.
// If any file fails to parse, nothing is registered.
func LoadFS(ctx context.Context, table *opinfo.Table, fsys fs.FS, pattern string) error {
	names, err := fs.Glob(fsys, pattern)
	if err != nil {
		return errors.Wrapf(err, "listing kernel descriptors matching %q", pattern)
	}
	impls, err := ParseFiles(ctx, fsys, names)
	if err != nil {
		return err
	}
	for ii, impl := range impls {
		if err := table.Register(impl); err != nil {
			return errors.WithMessagef(err, "registering %q", names[ii])
		}
	}
	klog.V(1).Infof("opinfo: loaded %d kernel descriptors matching %q", len(impls), pattern)
	return nil
}

// LoadDir is LoadFS for the "*.json" files of a directory.
func LoadDir(ctx context.Context, table *opinfo.Table, dir string) error {
	return LoadFS(ctx, table, os.DirFS(dir), "*.json")
}

// ParseFiles reads and parses the named files of fsys concurrently. The results are in the same
// order as names. It returns the first error encountered, annotated with the file name.
func ParseFiles(ctx context.Context, fsys fs.FS, names []string) ([]*opinfo.Implementation, error) {
	impls := make([]*opinfo.Implementation, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(runtime.GOMAXPROCS(0), 1))
	for ii, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				return errors.Wrapf(err, "reading kernel descriptor %q", name)
			}
			impl, err := Parse(data)
			if err != nil {
				return errors.WithMessagef(err, "parsing %q", name)
			}
			impls[ii] = impl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return impls, nil
}
