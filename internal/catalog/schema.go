// Package catalog owns the bayesdb_* system tables (spec.md §3, §4.3):
// tables, populations, variables, generators, and models, versioned the way
// original_source/src/schema.py versions bayeslite's own metamodel/table
// schema (a PRAGMA user_version-gated, ordered chain of upgrade scripts
// executed once at Open). The population/generator shape here has no
// predecessor in that file — the legacy schema stops at the
// table/metamodel/model era — so schema_1 below is a fresh design grounded
// on spec.md §3 rather than a direct port.
package catalog

import (
	"context"
	"fmt"

	"github.com/probcomp/bayesdb/internal/dberr"
	"github.com/probcomp/bayesdb/internal/sqlexec"
)

// currentVersion is the catalog's PRAGMA user_version. Bump it and append a
// schemaNtoN+1 upgrade script when the system tables change shape.
const currentVersion = 1

const schema1 = `
CREATE TABLE bayesdb_table (
	id		INTEGER NOT NULL PRIMARY KEY,
	name		TEXT COLLATE NOCASE NOT NULL UNIQUE
);

CREATE TABLE bayesdb_table_column (
	id		INTEGER NOT NULL PRIMARY KEY,
	table_id	INTEGER NOT NULL REFERENCES bayesdb_table(id),
	name		TEXT COLLATE NOCASE NOT NULL,
	colno		INTEGER NOT NULL,
	stattype_guess	TEXT,
	stats		BLOB,
	UNIQUE (table_id, name),
	UNIQUE (table_id, colno)
);

CREATE TABLE bayesdb_population (
	id		INTEGER NOT NULL PRIMARY KEY,
	name		TEXT COLLATE NOCASE NOT NULL UNIQUE,
	table_id	INTEGER NOT NULL REFERENCES bayesdb_table(id)
);

CREATE TABLE bayesdb_variable (
	population_id	INTEGER NOT NULL REFERENCES bayesdb_population(id),
	varno		INTEGER NOT NULL CHECK (varno > 0),
	colno		INTEGER NOT NULL,
	name		TEXT COLLATE NOCASE NOT NULL,
	stattype	TEXT NOT NULL,
	latent		INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (population_id, varno),
	UNIQUE (population_id, name)
);

CREATE TABLE bayesdb_generator (
	id		INTEGER NOT NULL PRIMARY KEY,
	name		TEXT COLLATE NOCASE NOT NULL UNIQUE,
	population_id	INTEGER NOT NULL REFERENCES bayesdb_population(id),
	backend		TEXT NOT NULL,
	schema_blob	BLOB NOT NULL
);

CREATE TABLE bayesdb_generator_model (
	generator_id	INTEGER NOT NULL REFERENCES bayesdb_generator(id),
	modelno		INTEGER NOT NULL CHECK (modelno >= 0),
	iterations	INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (generator_id, modelno)
);
`

// upgrades maps "from version" to the script that advances the catalog by
// exactly one version, mirroring bayesdb_schema_3to4's incremental style.
var upgrades = map[int]string{
	0: schema1,
}

// InstallSchema ensures tx's database carries the catalog tables at
// currentVersion, applying any pending upgrade scripts in order. Call once
// per newly opened connection, inside its own transaction, before any other
// catalog operation.
func InstallSchema(ctx context.Context, tx sqlexec.Tx) error {
	version, err := userVersion(ctx, tx)
	if err != nil {
		return err
	}
	for version < currentVersion {
		script, ok := upgrades[version]
		if !ok {
			return dberr.Internalf("no upgrade path from catalog version %d", version)
		}
		for _, stmt := range splitStatements(script) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return dberr.Internalf("installing catalog schema (from v%d): %v", version, err)
			}
		}
		version++
		if _, err := tx.Exec(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			return dberr.Internalf("setting catalog version to %d: %v", version, err)
		}
	}
	if version > currentVersion {
		return dberr.Internalf("catalog version %d is newer than this binary supports (%d)", version, currentVersion)
	}
	return nil
}

func userVersion(ctx context.Context, tx sqlexec.Tx) (int, error) {
	row := tx.QueryRow(ctx, "PRAGMA user_version")
	var v int
	if err := row.Scan(&v); err != nil {
		return 0, dberr.Internalf("reading catalog version: %v", err)
	}
	return v, nil
}

// splitStatements breaks a multi-statement script on ";\n" boundaries. The
// scripts above never embed a semicolon inside a string or identifier, so
// this textual split is sufficient and avoids depending on a full SQL
// tokenizer for DDL bootstrap.
func splitStatements(script string) []string {
	var out []string
	start := 0
	for i := 0; i < len(script); i++ {
		if script[i] == ';' {
			stmt := trimSpace(script[start:i])
			if stmt != "" {
				out = append(out, stmt)
			}
			start = i + 1
		}
	}
	if tail := trimSpace(script[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && isSpace(s[i]) {
		i++
	}
	for j > i && isSpace(s[j-1]) {
		j--
	}
	return s[i:j]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
