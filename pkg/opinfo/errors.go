// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package opinfo

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Sentinel errors, one per failure class. Every error returned by this package matches exactly one
// of them with errors.Is, and can be unpacked with errors.As into the corresponding *XxxError type
// for the details.
//
// Registration time failures (ErrMalformedDescriptor, ErrInconsistentVariantCount,
// ErrDuplicateAttribute, ErrTableFrozen) are programming errors in the kernel descriptors.
// Query time failures (ErrUnknownOperator, ErrNoCompatibleKernel, ErrMalformedCallSite) are
// reported to the caller, who decides whether they are fatal.
var (
	ErrMalformedDescriptor      = errors.New("malformed kernel descriptor")
	ErrInconsistentVariantCount = errors.New("inconsistent variant count")
	ErrDuplicateAttribute       = errors.New("duplicate attribute")
	ErrTableFrozen              = errors.New("registration table is frozen")
	ErrUnknownOperator          = errors.New("unknown operator")
	ErrNoCompatibleKernel       = errors.New("no compatible kernel")
	ErrMalformedCallSite        = errors.New("malformed call site")
)

// MalformedDescriptorError reports a structural defect in a kernel descriptor.
type MalformedDescriptorError struct {
	OpName string

	// Slot is the offending operand slot (e.g. "input 1 (value)") or payload field, if known.
	Slot string

	Reason string
}

func (e *MalformedDescriptorError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed kernel descriptor")
	if e.OpName != "" {
		fmt.Fprintf(&sb, " for %q", e.OpName)
	}
	if e.Slot != "" {
		fmt.Fprintf(&sb, ", %s", e.Slot)
	}
	fmt.Fprintf(&sb, ": %s", e.Reason)
	return sb.String()
}

// Is implements errors.Is.
func (e *MalformedDescriptorError) Is(target error) bool { return target == ErrMalformedDescriptor }

// InconsistentVariantCountError reports a slot whose variant list length differs from the others.
type InconsistentVariantCountError struct {
	OpName   string
	Slot     string
	Length   int
	Expected int
}

func (e *InconsistentVariantCountError) Error() string {
	return fmt.Sprintf("inconsistent variant count for %q: %s declares %d variants, expected %d",
		e.OpName, e.Slot, e.Length, e.Expected)
}

// Is implements errors.Is.
func (e *InconsistentVariantCountError) Is(target error) bool {
	return target == ErrInconsistentVariantCount
}

// DuplicateAttributeError reports an attribute name declared more than once.
type DuplicateAttributeError struct {
	OpName string
	Name   string
}

func (e *DuplicateAttributeError) Error() string {
	return fmt.Sprintf("duplicate attribute %q for %q", e.Name, e.OpName)
}

// Is implements errors.Is.
func (e *DuplicateAttributeError) Is(target error) bool { return target == ErrDuplicateAttribute }

// UnknownOperatorError is returned when no implementation at all is registered for an operator.
type UnknownOperatorError struct {
	OpName string

	// Suggestions are registered operators with similar names, closest first.
	Suggestions []string
}

func (e *UnknownOperatorError) Error() string {
	msg := fmt.Sprintf("unknown operator %q: no kernel registered", e.OpName)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(quoteAll(e.Suggestions), ", "))
	}
	return msg
}

// Is implements errors.Is.
func (e *UnknownOperatorError) Is(target error) bool { return target == ErrUnknownOperator }

// Mismatch records why one variant (or one whole implementation) of an operator didn't match a call site.
type Mismatch struct {
	Implementation *Implementation

	// Variant is the variant index tried, or -1 if the implementation couldn't bind the call site
	// operands at all (see Reason).
	Variant int

	// Slot is the first slot that didn't match, e.g. "input 1 (value)".
	Slot string

	// Expected is what the variant declares for Slot, and Actual what the call site supplied.
	Expected, Actual Operand

	// Reason is set for arity mismatches, when Variant is -1.
	Reason string
}

func (m Mismatch) String() string {
	var kernel string
	if m.Implementation != nil {
		kernel = fmt.Sprintf("%s kernel %q", m.Implementation.Imply, m.Implementation.KernelName)
	}
	if m.Variant < 0 {
		return fmt.Sprintf("%s: %s", kernel, m.Reason)
	}
	return fmt.Sprintf("%s variant #%d: %s expected %s, got %s", kernel, m.Variant, m.Slot, m.Expected, m.Actual)
}

// NoCompatibleKernelError is returned when an operator is registered, but none of its variants match
// the call site. It lists every attempted (implementation, variant) with its first mismatching slot.
type NoCompatibleKernelError struct {
	OpName   string
	Call     CallSite
	Attempts []Mismatch
}

func (e *NoCompatibleKernelError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "no compatible kernel for %s: %d attempts failed", e.Call, len(e.Attempts))
	for _, attempt := range e.Attempts {
		sb.WriteString("\n\t")
		sb.WriteString(attempt.String())
	}
	return sb.String()
}

// Is implements errors.Is.
func (e *NoCompatibleKernelError) Is(target error) bool { return target == ErrNoCompatibleKernel }

// MalformedCallSiteError is returned when the call site itself is invalid, e.g. a wildcard input.
type MalformedCallSiteError struct {
	OpName string
	Slot   string
	Reason string
}

func (e *MalformedCallSiteError) Error() string {
	return fmt.Sprintf("malformed call site for %q, %s: %s", e.OpName, e.Slot, e.Reason)
}

// Is implements errors.Is.
func (e *MalformedCallSiteError) Is(target error) bool { return target == ErrMalformedCallSite }

func quoteAll(values []string) []string {
	quoted := make([]string, len(values))
	for ii, v := range values {
		quoted[ii] = fmt.Sprintf("%q", v)
	}
	return quoted
}

// slotName formats the name of an operand slot for error messages.
func slotName(kind string, index int, name string) string {
	if name == "" {
		return fmt.Sprintf("%s %d", kind, index)
	}
	return fmt.Sprintf("%s %d (%s)", kind, index, name)
}
