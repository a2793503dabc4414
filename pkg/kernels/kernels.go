// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels assembles the registration table of all built-in kernels.
//
// Programs typically call MustNewTable once at startup and share the frozen table (and a Selector
// over it) with the graph compiler and executors.
package kernels

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/opinfo/pkg/kernels/gpu"
	"github.com/gomlx/opinfo/pkg/kernels/tbe"
	"github.com/gomlx/opinfo/pkg/opinfo"
	"k8s.io/klog/v2"
)

// RegisterAll registers every built-in kernel in table: first the TBE kernels, then the native GPU
// ones. That order is the priority order among kernels of the same operator.
func RegisterAll(table *opinfo.Table) error {
	if err := tbe.Register(table); err != nil {
		return err
	}
	return gpu.Register(table)
}

// NewTable returns a frozen table with all built-in kernels.
func NewTable() (*opinfo.Table, error) {
	table := opinfo.NewTable()
	if err := RegisterAll(table); err != nil {
		return nil, err
	}
	table.Freeze()
	klog.V(1).Infof("opinfo: built-in table ready: %d operators, %d kernels",
		table.NumOperators(), table.NumImplementations())
	return table, nil
}

// MustNewTable is like NewTable, but panics on error. A malformed built-in descriptor is a bug, and
// the program can't start without its kernels.
func MustNewTable() *opinfo.Table {
	table, err := NewTable()
	if err != nil {
		exceptions.Panicf("failed to build the kernel registration table: %+v", err)
	}
	return table
}
