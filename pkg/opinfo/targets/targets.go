// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package targets defines the hardware targets a program can compile for, and the kinds of kernel
// implementations each one can run.
//
// The Selector matches descriptors only: it doesn't know about back-ends. Selecting for a target is
// done by narrowing the candidates to the kernels the target runs, before the selection. That is what
// Target.Select does.
package targets

import (
	"os"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/opinfo/pkg/opinfo"
	"github.com/gomlx/opinfo/pkg/support/xslices"
	"github.com/pkg/errors"
)

// Target is a named hardware target, e.g. "ascend", and the kernel kinds it runs.
//
// The order of Kinds is not a priority: kernels accepted by the target are tried in the order they
// were registered in the table, whatever their kind.
type Target struct {
	Name  string
	Kinds []opinfo.ImplyType
}

// Accepts returns whether the target can run impl.
func (t *Target) Accepts(impl *opinfo.Implementation) bool {
	return slices.Contains(t.Kinds, impl.Imply)
}

// Filter returns the implementations the target can run, preserving their order.
func (t *Target) Filter(impls []*opinfo.Implementation) []*opinfo.Implementation {
	var kept []*opinfo.Implementation
	for _, impl := range impls {
		if t.Accepts(impl) {
			kept = append(kept, impl)
		}
	}
	return kept
}

// Select the kernel variant for call among the implementations this target can run.
//
// It fails with *opinfo.UnknownOperatorError if the operator has no implementation at all, and with
// *opinfo.NoCompatibleKernelError if it has some, but none runnable by the target matches.
func (t *Target) Select(selector *opinfo.Selector, call opinfo.CallSite) (opinfo.Selection, error) {
	table := selector.Table()
	impls := table.Lookup(call.OpName)
	if len(impls) == 0 {
		return opinfo.Selection{}, &opinfo.UnknownOperatorError{OpName: call.OpName, Suggestions: table.Suggest(call.OpName)}
	}
	return selector.SelectAmong(call, t.Filter(impls))
}

// Capabilities of the target on the given table.
func (t *Target) Capabilities(table *opinfo.Table) opinfo.Capabilities {
	return table.Capabilities(t.Accepts)
}

var (
	registered      = make(map[string]*Target)
	firstRegistered string
)

// Register a target with the kinds of kernels it runs.
// If a target with the same name was registered before, it is replaced.
//
// To be safe, call Register during initialization of a package.
func Register(name string, kinds ...opinfo.ImplyType) {
	if len(registered) == 0 {
		firstRegistered = name
	}
	registered[name] = &Target{Name: name, Kinds: slices.Clone(kinds)}
}

// Names of the registered targets, sorted.
func Names() []string {
	return xslices.SortedKeys(registered)
}

// Get returns the target registered with the given name.
func Get(name string) (*Target, error) {
	t, found := registered[name]
	if !found {
		return nil, errors.Errorf("unknown target %q, registered targets are %q", name, Names())
	}
	return t, nil
}

// EnvTarget is the environment variable with the name of the default target.
const EnvTarget = "OPINFO_TARGET"

// DefaultTarget is the name of the target to use if EnvTarget is not set.
// If it is also empty, the first registered target is used.
var DefaultTarget string

// Default returns the default target:
//
// 1. The environment variable OPINFO_TARGET is used, if defined.
// 2. Next the variable DefaultTarget, if not empty.
// 3. The first registered target.
func Default() (*Target, error) {
	if name, found := os.LookupEnv(EnvTarget); found && name != "" {
		return Get(name)
	}
	if DefaultTarget != "" {
		return Get(DefaultTarget)
	}
	if firstRegistered == "" {
		return nil, errors.New("no targets registered")
	}
	return Get(firstRegistered)
}

// MustDefault is like Default, but panics on error.
func MustDefault() *Target {
	t, err := Default()
	if err != nil {
		exceptions.Panicf("%+v", err)
	}
	return t
}

func init() {
	Register("ascend", opinfo.ImplyTBE, opinfo.ImplyAiCPU, opinfo.ImplyAKG)
	Register("gpu", opinfo.ImplyGPU, opinfo.ImplyAKG)
	Register("cpu", opinfo.ImplyCPU)
}
