// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opinfo

import (
	"fmt"
	"strings"

	"github.com/gomlx/opinfo/pkg/core/dtypes"
	"github.com/gomlx/opinfo/pkg/core/layouts"
	"k8s.io/klog/v2"
)

// CallSite is one concrete invocation of an operator, as seen by the graph compiler or executor.
//
// Inputs must be concrete. Outputs can be empty (nil or zero length), meaning "any compatible
// output", or list one operand per output slot, where each dtype or layout may be a wildcard
// (dtypes.InvalidDType, layouts.Any).
type CallSite struct {
	OpName  string
	Inputs  []Operand
	Outputs []Operand
}

// String returns e.g. `Assign(float16/DefaultFormat, float16/DefaultFormat) -> (*)`.
func (c CallSite) String() string {
	var sb strings.Builder
	sb.WriteString(c.OpName)
	sb.WriteString("(")
	for ii, in := range c.Inputs {
		if ii > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(in.String())
	}
	sb.WriteString(") -> (")
	if len(c.Outputs) == 0 {
		sb.WriteString("*")
	}
	for ii, out := range c.Outputs {
		if ii > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(out.String())
	}
	sb.WriteString(")")
	return sb.String()
}

func (c CallSite) validate() error {
	for ii, in := range c.Inputs {
		if !in.IsConcrete() {
			return &MalformedCallSiteError{OpName: c.OpName, Slot: slotName("input", ii, ""),
				Reason: fmt.Sprintf("inputs must have a concrete dtype and format, got %s", in)}
		}
	}
	for ii, out := range c.Outputs {
		if (out.DType != dtypes.InvalidDType && !out.DType.IsValid()) ||
			(out.Layout != layouts.Any && !out.Layout.IsValid()) {
			return &MalformedCallSiteError{OpName: c.OpName, Slot: slotName("output", ii, ""),
				Reason: fmt.Sprintf("invalid operand %s", out)}
		}
	}
	return nil
}

// Selection is the result of a successful Selector query.
type Selection struct {
	Implementation *Implementation
	VariantIndex   int

	// Inputs holds the requirement of the chosen variant for each call-site input (one per operand
	// given in CallSite.Inputs, after expanding dynamic or all-same slots), and Outputs for each output
	// slot. Since matching is exact, Inputs equals the call-site inputs, while Outputs resolves any
	// wildcarded output.
	Inputs, Outputs []Operand
}

// Selector picks, for a call site, which registered kernel variant to use.
//
// Selection is a pure function of the table and the call site: the first (implementation, variant)
// in registration order and ascending variant index whose every slot equals the call site's operand
// wins. Implementation.Cost is never considered.
//
// A Selector is safe for concurrent use once its table is frozen.
type Selector struct {
	table *Table
}

// NewSelector returns a Selector over table.
func NewSelector(table *Table) *Selector {
	return &Selector{table: table}
}

// Table used by the selector.
func (s *Selector) Table() *Table { return s.table }

// Select returns the kernel variant to use for call.
//
// It fails with *UnknownOperatorError if the operator has no registered implementation, and
// with *NoCompatibleKernelError, listing every attempted variant, if none match.
func (s *Selector) Select(call CallSite) (Selection, error) {
	candidates := s.table.Lookup(call.OpName)
	if len(candidates) == 0 {
		return Selection{}, &UnknownOperatorError{OpName: call.OpName, Suggestions: s.table.Suggest(call.OpName)}
	}
	return s.SelectAmong(call, candidates)
}

// SelectAmong runs the selection over the given candidates instead of all registered implementations
// of the operator. It is used by callers that narrow the candidates first, e.g. to the kernels of the
// currently targeted back-end (see package targets).
//
// An empty list of candidates yields a *NoCompatibleKernelError with no attempts.
func (s *Selector) SelectAmong(call CallSite, candidates []*Implementation) (Selection, error) {
	if err := call.validate(); err != nil {
		return Selection{}, err
	}
	var attempts []Mismatch
	for _, impl := range candidates {
		bindings, reason := bindInputs(impl, len(call.Inputs))
		if reason == "" && len(call.Outputs) > 0 && len(call.Outputs) != len(impl.Outputs) {
			reason = fmt.Sprintf("call site has %d outputs, kernel declares %d", len(call.Outputs), len(impl.Outputs))
		}
		if reason != "" {
			attempts = append(attempts, Mismatch{Implementation: impl, Variant: -1, Reason: reason})
			continue
		}
		for k := range impl.NumVariants() {
			mismatch, ok := matchVariant(impl, bindings, call, k)
			if ok {
				selection := newSelection(impl, bindings, k)
				klog.V(1).Infof("opinfo: %s selected %s variant #%d", call, impl, k)
				return selection, nil
			}
			attempts = append(attempts, mismatch)
		}
	}
	err := &NoCompatibleKernelError{OpName: call.OpName, Call: call, Attempts: attempts}
	if klog.V(2).Enabled() {
		klog.Infof("opinfo: %v", err)
	}
	return Selection{}, err
}

// matchVariant checks every slot of variant k. If one doesn't match, it returns the first mismatch.
func matchVariant(impl *Implementation, bindings []int, call CallSite, k int) (Mismatch, bool) {
	for ii, in := range call.Inputs {
		slot := bindings[ii]
		want := impl.Inputs[slot].Variant(k)
		if !in.accepts(want) {
			slotDesc := impl.inputSlot(slot)
			if slot != ii {
				slotDesc = fmt.Sprintf("%s, operand #%d", slotDesc, ii)
			}
			return Mismatch{Implementation: impl, Variant: k, Slot: slotDesc, Expected: want, Actual: in}, false
		}
	}
	for ii, out := range call.Outputs {
		want := impl.Outputs[ii].Variant(k)
		if !out.accepts(want) {
			return Mismatch{Implementation: impl, Variant: k, Slot: impl.outputSlot(ii), Expected: want, Actual: out}, false
		}
	}
	return Mismatch{}, true
}

func newSelection(impl *Implementation, bindings []int, k int) Selection {
	selection := Selection{
		Implementation: impl,
		VariantIndex:   k,
		Inputs:         make([]Operand, len(bindings)),
		Outputs:        make([]Operand, len(impl.Outputs)),
	}
	for ii, slot := range bindings {
		selection.Inputs[ii] = impl.Inputs[slot].Variant(k)
	}
	for ii, d := range impl.Outputs {
		selection.Outputs[ii] = d.Variant(k)
	}
	return selection
}

// bindInputs maps each of the numOperands call-site inputs to the input slot of impl it binds to.
// If the operands can't be bound, it returns a non-empty reason.
//
// Required slots take exactly one operand. Trailing optional slots may be left out. A dynamic slot
// takes one or more operands, and the all-same input slot takes any number >= 1.
func bindInputs(impl *Implementation, numOperands int) (bindings []int, reason string) {
	numSlots := len(impl.Inputs)
	if impl.AllSameInputs {
		if numOperands == 0 {
			return nil, "kernel requires at least one input"
		}
		return make([]int, numOperands), ""
	}

	dynamicSlot := -1
	minOperands := 0
	for ii, d := range impl.Inputs {
		switch d.paramType {
		case ParamDynamic:
			dynamicSlot = ii
			minOperands = ii + 1
		case ParamRequired:
			minOperands = ii + 1
		}
	}

	if dynamicSlot < 0 {
		if numOperands < minOperands || numOperands > numSlots {
			if minOperands == numSlots {
				return nil, fmt.Sprintf("call site has %d inputs, kernel declares %d", numOperands, numSlots)
			}
			return nil, fmt.Sprintf("call site has %d inputs, kernel accepts %d to %d", numOperands, minOperands, numSlots)
		}
		bindings = make([]int, numOperands)
		for ii := range bindings {
			bindings[ii] = ii
		}
		return bindings, ""
	}

	// With a dynamic slot, all other slots bind exactly one operand.
	if numOperands < numSlots {
		return nil, fmt.Sprintf("call site has %d inputs, kernel requires at least %d", numOperands, numSlots)
	}
	extra := numOperands - numSlots
	bindings = make([]int, numOperands)
	for ii := range bindings {
		switch {
		case ii < dynamicSlot:
			bindings[ii] = ii
		case ii <= dynamicSlot+extra:
			bindings[ii] = dynamicSlot
		default:
			bindings[ii] = ii - extra
		}
	}
	return bindings, ""
}
