package compiler

import (
	"strings"

	"github.com/google/uuid"
)

// newTempSuffix returns a process-unique identifier fragment for a
// SIMULATE statement's materialized temp table (spec.md §4.4), grounded on
// the pack's use of google/uuid for exactly this kind of scratch-resource
// naming. It is a package var, not a plain func, so tests can replace it
// with gostub to get a deterministic temp table name for golden comparison.
var newTempSuffix = func() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
