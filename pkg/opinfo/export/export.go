// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package export writes a snapshot of a registration table to a SQLite database, so kernel coverage
// can be queried with SQL by external tooling.
//
// The schema has one row per implementation, per slot, per variant of a slot and per attribute:
//
//	SELECT i.op_name, v.k FROM variants v JOIN implementations i ON i.id = v.impl_id
//	WHERE v.kind = 'input' AND v.slot = 0 AND v.dtype = 'float16' AND v.format = 'FracZ';
package export

import (
	"context"
	"database/sql"
	"os"

	"github.com/gomlx/opinfo/pkg/opinfo"
	_ "github.com/mattn/go-sqlite3" // Registers the "sqlite3" driver.
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS implementations (
	id INTEGER PRIMARY KEY,
	op_name TEXT NOT NULL,
	priority INTEGER NOT NULL,
	imply_type TEXT NOT NULL,
	fusion_type TEXT NOT NULL,
	kernel_name TEXT NOT NULL,
	binfile_name TEXT NOT NULL DEFAULT '',
	compute_cost INTEGER NOT NULL DEFAULT 0,
	async_flag BOOLEAN NOT NULL DEFAULT 0,
	partial_flag BOOLEAN NOT NULL DEFAULT 0,
	all_same BOOLEAN NOT NULL DEFAULT 0,
	num_variants INTEGER NOT NULL,
	UNIQUE (op_name, priority)
);

CREATE TABLE IF NOT EXISTS slots (
	impl_id INTEGER NOT NULL,
	kind TEXT NOT NULL CHECK (kind IN ('input', 'output')),
	slot INTEGER NOT NULL,
	name TEXT NOT NULL,
	param_type TEXT NOT NULL,
	shape TEXT NOT NULL,
	need_compile BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY (impl_id, kind, slot),
	FOREIGN KEY (impl_id) REFERENCES implementations(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS variants (
	impl_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	slot INTEGER NOT NULL,
	k INTEGER NOT NULL,
	dtype TEXT NOT NULL,
	format TEXT NOT NULL,
	PRIMARY KEY (impl_id, kind, slot, k),
	FOREIGN KEY (impl_id) REFERENCES implementations(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS attributes (
	impl_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	param_type TEXT NOT NULL,
	type TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (impl_id, name),
	FOREIGN KEY (impl_id) REFERENCES implementations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS variants_by_operand ON variants (dtype, format);
`

// Stats about an export.
type Stats struct {
	Implementations, Slots, Variants, Attributes int
}

// Write the implementations of table to db, in a single transaction.
// Any previous content of the tables is replaced.
func Write(ctx context.Context, db *sql.DB, table *opinfo.Table) (Stats, error) {
	var stats Stats
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return stats, errors.Wrap(err, "creating opinfo schema")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, name := range []string{"attributes", "variants", "slots", "implementations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
			return stats, errors.Wrapf(err, "clearing table %s", name)
		}
	}

	w := &writer{ctx: ctx, tx: tx, stats: &stats}
	for _, opName := range table.Operators() {
		for priority, impl := range table.Lookup(opName) {
			if err := w.implementation(priority, impl); err != nil {
				return stats, errors.WithMessagef(err, "exporting %s", impl)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return stats, errors.Wrap(err, "committing export")
	}
	klog.V(1).Infof("opinfo: exported %d implementations, %d variants", stats.Implementations, stats.Variants)
	return stats, nil
}

// WriteFile creates (or overwrites) the SQLite database at path with the implementations of table.
func WriteFile(ctx context.Context, path string, table *opinfo.Table) (Stats, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return Stats{}, errors.Wrapf(err, "removing previous database %q", path)
	}
	db, err := Open(path)
	if err != nil {
		return Stats{}, err
	}
	stats, err := Write(ctx, db, table)
	if closeErr := db.Close(); err == nil && closeErr != nil {
		err = errors.Wrapf(closeErr, "closing %q", path)
	}
	return stats, err
}

// Open the SQLite database at path, with foreign keys enabled.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "opening database %q", path)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "opening database %q", path)
	}
	return db, nil
}

type writer struct {
	ctx   context.Context
	tx    *sql.Tx
	stats *Stats
}

func (w *writer) implementation(priority int, impl *opinfo.Implementation) error {
	res, err := w.tx.ExecContext(w.ctx, `INSERT INTO implementations
		(op_name, priority, imply_type, fusion_type, kernel_name, binfile_name, compute_cost,
		 async_flag, partial_flag, all_same, num_variants)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		impl.OpName, priority, impl.Imply.String(), impl.Fusion.String(), impl.KernelName, impl.BinaryFile,
		impl.Cost, impl.Async, impl.Partial, impl.AllSameInputs, impl.NumVariants())
	if err != nil {
		return errors.Wrap(err, "inserting implementation")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "reading implementation id")
	}
	w.stats.Implementations++

	for _, attr := range impl.Attributes {
		if _, err := w.tx.ExecContext(w.ctx,
			`INSERT INTO attributes (impl_id, name, param_type, type, value) VALUES (?, ?, ?, ?, ?)`,
			id, attr.Name, attr.ParamType.String(), attr.Type, attr.Value); err != nil {
			return errors.Wrapf(err, "inserting attribute %q", attr.Name)
		}
		w.stats.Attributes++
	}
	if err := w.slots(id, "input", impl.Inputs); err != nil {
		return err
	}
	return w.slots(id, "output", impl.Outputs)
}

func (w *writer) slots(id int64, kind string, descriptors []*opinfo.OperandDescriptor) error {
	for _, d := range descriptors {
		if _, err := w.tx.ExecContext(w.ctx,
			`INSERT INTO slots (impl_id, kind, slot, name, param_type, shape, need_compile) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, kind, d.Index(), d.Name(), d.ParamType().String(), d.Shape().String(), d.NeedCompile()); err != nil {
			return errors.Wrapf(err, "inserting %s %d", kind, d.Index())
		}
		w.stats.Slots++
		for k := range d.NumVariants() {
			o := d.Variant(k)
			if _, err := w.tx.ExecContext(w.ctx,
				`INSERT INTO variants (impl_id, kind, slot, k, dtype, format) VALUES (?, ?, ?, ?, ?, ?)`,
				id, kind, d.Index(), k, o.DType.RegistryName(), o.Layout.String()); err != nil {
				return errors.Wrapf(err, "inserting variant #%d of %s %d", k, kind, d.Index())
			}
			w.stats.Variants++
		}
	}
	return nil
}
