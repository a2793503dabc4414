// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opinfo

import (
	"fmt"

	"github.com/gomlx/opinfo/pkg/support/sets"
)

// Validate checks the internal consistency of an implementation before it is registered.
//
// The checks run in order, and the first failure is returned:
//
//  1. Every input and output declares the same number of variants k_max >= 1,
//     else *InconsistentVariantCountError naming the offending slot.
//  2. Input indices are 0, 1, 2, ... in order, and independently so are output indices,
//     else *MalformedDescriptorError.
//  3. Attribute names are unique, else *DuplicateAttributeError.
//
// Afterward, it checks the operator name is set, at most one input is dynamic, and that
// AllSameInputs kernels have exactly one input slot (*MalformedDescriptorError).
//
// Validate has no side effects.
func Validate(impl *Implementation) error {
	if impl == nil {
		return &MalformedDescriptorError{Reason: "nil implementation"}
	}
	for ii, d := range impl.Inputs {
		if d == nil {
			return &MalformedDescriptorError{OpName: impl.OpName, Slot: slotName("input", ii, ""), Reason: "nil descriptor"}
		}
	}
	for ii, d := range impl.Outputs {
		if d == nil {
			return &MalformedDescriptorError{OpName: impl.OpName, Slot: slotName("output", ii, ""), Reason: "nil descriptor"}
		}
	}
	if err := validateVariantCounts(impl); err != nil {
		return err
	}
	if err := validateIndices(impl.OpName, "input", impl.Inputs); err != nil {
		return err
	}
	if err := validateIndices(impl.OpName, "output", impl.Outputs); err != nil {
		return err
	}
	seen := sets.Make[string](len(impl.Attributes))
	for _, attr := range impl.Attributes {
		if seen.Has(attr.Name) {
			return &DuplicateAttributeError{OpName: impl.OpName, Name: attr.Name}
		}
		seen.Insert(attr.Name)
	}

	if impl.OpName == "" {
		return &MalformedDescriptorError{Slot: "op_name", Reason: "empty operator name"}
	}
	var numDynamic int
	for _, d := range impl.Inputs {
		if d.paramType == ParamDynamic {
			numDynamic++
		}
	}
	if numDynamic > 1 {
		return &MalformedDescriptorError{OpName: impl.OpName,
			Reason: fmt.Sprintf("%d dynamic inputs, at most one is allowed", numDynamic)}
	}
	if impl.AllSameInputs && len(impl.Inputs) != 1 {
		return &MalformedDescriptorError{OpName: impl.OpName,
			Reason: fmt.Sprintf("kernels with all-same inputs must declare exactly one input slot, got %d", len(impl.Inputs))}
	}
	return nil
}

func validateVariantCounts(impl *Implementation) error {
	if len(impl.Inputs) == 0 && len(impl.Outputs) == 0 {
		return &InconsistentVariantCountError{OpName: impl.OpName, Slot: "all slots (none declared)", Length: 0, Expected: 1}
	}
	kMax := impl.NumVariants()
	if kMax == 0 {
		var slot string
		if len(impl.Inputs) > 0 {
			slot = impl.inputSlot(0)
		} else {
			slot = impl.outputSlot(0)
		}
		return &InconsistentVariantCountError{OpName: impl.OpName, Slot: slot, Length: 0, Expected: 1}
	}
	for ii, d := range impl.Inputs {
		if d.NumVariants() != kMax {
			return &InconsistentVariantCountError{OpName: impl.OpName, Slot: impl.inputSlot(ii),
				Length: d.NumVariants(), Expected: kMax}
		}
	}
	for ii, d := range impl.Outputs {
		if d.NumVariants() != kMax {
			return &InconsistentVariantCountError{OpName: impl.OpName, Slot: impl.outputSlot(ii),
				Length: d.NumVariants(), Expected: kMax}
		}
	}
	return nil
}

func validateIndices(opName, kind string, slots []*OperandDescriptor) error {
	for ii, d := range slots {
		if d.index == ii {
			continue
		}
		reason := fmt.Sprintf("index %d at position %d: indices must be contiguous from 0", d.index, ii)
		for jj := range ii {
			if slots[jj].index == d.index {
				reason = fmt.Sprintf("duplicate index %d", d.index)
				break
			}
		}
		return &MalformedDescriptorError{OpName: opName, Slot: slotName(kind, ii, d.name), Reason: reason}
	}
	return nil
}
