// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package opinfo is the operator kernel registry: it associates each abstract operator (e.g. "Assign")
// with the concrete kernels implementing it, each constrained to a set of data type and memory layout
// combinations (variants), and selects which kernel variant to use for a given call site.
//
// The flow is:
//
//   - At startup, kernel descriptors are parsed (see package payload for the JSON format, or
//     FromSignatures for kernels declared in Go) into Implementation values.
//   - Table.Register validates each one (see Validate) and appends it to the operator's list.
//   - Table.Freeze ends the startup phase, and the table becomes read-only.
//   - The graph compiler and executor query a Selector with a CallSite: the dtypes and layouts of the
//     actual operands. The first registered kernel variant matching all operands exactly is returned.
//
// Errors are typed (see errors.go): registration errors are programming errors in the descriptors and
// should abort the startup; selection errors are returned to the caller.
package opinfo
