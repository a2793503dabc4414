// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tbe holds the descriptors of the built-in kernels compiled by the tensor-boost-engine
// toolchain for the Ascend accelerators.
//
// Each kernel is described by a JSON registration payload under descriptors/, embedded in the binary.
// The kernel code itself lives in the binary file named by the descriptor.
package tbe

import (
	"context"
	"embed"

	"github.com/gomlx/opinfo/pkg/opinfo"
	"github.com/gomlx/opinfo/pkg/opinfo/payload"
	"github.com/pkg/errors"
)

//go:embed descriptors/*.json
var descriptors embed.FS

// Pattern matching the embedded descriptor files.
const Pattern = "descriptors/*.json"

// Register all built-in TBE kernels in table, in lexical order of their descriptor file names.
func Register(table *opinfo.Table) error {
	err := payload.LoadFS(context.Background(), table, descriptors, Pattern)
	return errors.WithMessage(err, "registering built-in TBE kernels")
}

// Descriptors returns the embedded descriptor files, e.g. for tooling that dumps them.
func Descriptors() embed.FS {
	return descriptors
}
