// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opinfo

import (
	"cmp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/opinfo/pkg/core/dtypes"
	"github.com/gomlx/opinfo/pkg/core/layouts"
	"github.com/gomlx/opinfo/pkg/support/sets"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"k8s.io/klog/v2"
)

// Table maps operator names to their registered kernel implementations.
//
// It has a two-phase lifecycle: during the build phase (program startup) implementations are added
// with Register, from a single goroutine. Freeze then ends the build phase: from there on the table
// is read-only and can be shared with any number of goroutines without locking.
// Freeze must happen-before the table is shared.
//
// Implementations of one operator are kept in registration order, which is also their priority
// order for the Selector.
type Table struct {
	operators          *orderedmap.OrderedMap[string, []*Implementation]
	numImplementations int
	frozen             bool
}

// NewTable returns an empty table in its build phase.
func NewTable() *Table {
	return &Table{operators: orderedmap.New[string, []*Implementation]()}
}

// Register validates impl (see Validate) and appends it to the implementations of its operator.
//
// On failure impl is not inserted and the table is unchanged. A malformed built-in kernel is a
// programming error: callers registering built-ins at startup should abort (see MustRegister).
func (t *Table) Register(impl *Implementation) error {
	if t.frozen {
		name := "<nil>"
		if impl != nil {
			name = impl.OpName
		}
		return errors.Wrapf(ErrTableFrozen, "cannot register a kernel for %q", name)
	}
	if err := Validate(impl); err != nil {
		return err
	}
	impls, _ := t.operators.Get(impl.OpName)
	t.operators.Set(impl.OpName, append(impls, impl))
	t.numImplementations++
	if klog.V(1).Enabled() {
		klog.Infof("opinfo: registered %s, priority %d", impl, len(impls))
	}
	return nil
}

// MustRegister is like Register, but panics with the error if it fails.
func (t *Table) MustRegister(impl *Implementation) {
	if err := t.Register(impl); err != nil {
		exceptions.Panicf("failed to register kernel: %+v", err)
	}
}

// Freeze ends the build phase. It is idempotent.
func (t *Table) Freeze() {
	if !t.frozen {
		klog.V(1).Infof("opinfo: table frozen with %d operators and %d kernels", t.NumOperators(), t.numImplementations)
	}
	t.frozen = true
}

// IsFrozen returns whether Freeze was called.
func (t *Table) IsFrozen() bool { return t.frozen }

// Lookup returns the implementations registered for opName, in registration order.
// It returns nil if there is none: whether that is an error is up to the caller.
//
// The returned slice must not be modified.
func (t *Table) Lookup(opName string) []*Implementation {
	impls, _ := t.operators.Get(opName)
	return slices.Clip(impls)
}

// ListImplementations returns a copy of the implementations registered for opName, in registration order.
// Used by tooling and introspection.
func (t *Table) ListImplementations(opName string) []*Implementation {
	return slices.Clone(t.Lookup(opName))
}

// Has returns whether at least one implementation is registered for opName.
func (t *Table) Has(opName string) bool {
	_, found := t.operators.Get(opName)
	return found
}

// Operators returns the names of the registered operators, in the order they were first registered.
func (t *Table) Operators() []string {
	names := make([]string, 0, t.operators.Len())
	for pair := t.operators.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// NumOperators returns the number of distinct operators registered.
func (t *Table) NumOperators() int { return t.operators.Len() }

// NumImplementations returns the total number of implementations registered.
func (t *Table) NumImplementations() int { return t.numImplementations }

// maxSuggestions is the maximum number of similar names returned by Suggest.
const maxSuggestions = 3

// Suggest returns up to 3 registered operator names similar to opName, closest first.
// Names are compared case-insensitively with the Levenshtein distance, and only names within
// a third of the length of opName (at least 2 edits) are considered.
func (t *Table) Suggest(opName string) []string {
	type candidate struct {
		name     string
		distance int
	}
	lower := strings.ToLower(opName)
	maxDistance := max(2, len(opName)/3)
	var candidates []candidate
	for pair := t.operators.Oldest(); pair != nil; pair = pair.Next() {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(pair.Key))
		if d <= maxDistance && pair.Key != opName {
			candidates = append(candidates, candidate{pair.Key, d})
		}
	}
	slices.SortFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	suggestions := make([]string, 0, min(len(candidates), maxSuggestions))
	for _, c := range candidates[:min(len(candidates), maxSuggestions)] {
		suggestions = append(suggestions, c.name)
	}
	return suggestions
}

// Capabilities holds what is supported by a set of kernels.
type Capabilities struct {
	// Operators with at least one kernel.
	Operators sets.Set[string]

	// DTypes and Layouts used by at least one slot of one kernel.
	DTypes  sets.Set[dtypes.DType]
	Layouts sets.Set[layouts.Layout]
}

// Capabilities collects the operators, dtypes and layouts of the registered implementations accepted
// by keep. If keep is nil, all implementations are considered.
func (t *Table) Capabilities(keep func(impl *Implementation) bool) Capabilities {
	c := Capabilities{
		Operators: sets.Make[string](),
		DTypes:    sets.Make[dtypes.DType](),
		Layouts:   sets.Make[layouts.Layout](),
	}
	for pair := t.operators.Oldest(); pair != nil; pair = pair.Next() {
		for _, impl := range pair.Value {
			if keep != nil && !keep(impl) {
				continue
			}
			c.Operators.Insert(impl.OpName)
			for _, d := range slices.Concat(impl.Inputs, impl.Outputs) {
				c.DTypes.Insert(d.dtypes...)
				c.Layouts.Insert(d.layouts...)
			}
		}
	}
	return c
}
