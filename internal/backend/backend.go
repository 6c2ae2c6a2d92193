// Package backend defines the boundary to pluggable statistical engines
// (spec.md §4.5) and the process-wide registry of them (spec.md §5's
// "process-wide, initialized once"). The compiler and model-operator shims
// never construct a backend themselves; they look one up by name through
// Registry and call its methods, keyed on (generator id, model ids), from
// the single logical thread of the owning connection (spec.md §5).
package backend

import "github.com/probcomp/bayesdb/internal/dberr"

// Varno is a variable id stable across a generator's lifetime (spec.md §3:
// "Variables carry a stable integer id, used by backends").
type Varno int32

// Target is one (variable, value) pair, used both as a density/simulation
// target and as a GIVEN constraint (spec.md §4.5).
type Target struct {
	Varno Varno
	Value interface{}
}

// ValueLabel is one entry of a nominal variable's code↔label map (spec.md
// §4.5 column_value_map).
type ValueLabel struct {
	Code  int64
	Label string
}

// AnalyzeBudget is an elapsed-unit budget for ANALYZE (spec.md §4.7):
// iterations, seconds, or minutes.
type AnalyzeBudget struct {
	Unit  string // "iterations", "seconds", "minutes"
	Value float64
}

// AnalyzeProgram is the opaque backend-specific analysis sub-clause text
// (VARIABLES/SKIP/ROWS/SUBPROBLEMS/OPTIMIZED/QUIET), forwarded uninterpreted
// by the compiler (spec.md §4.7).
type AnalyzeProgram struct {
	Text string
}

// Backend is the fixed operation set of spec.md §4.5. Implementations train
// and answer probabilistic questions about a population of variables given a
// generator's stored models; the core surfaces every error as a BackendError
// without attempting recovery.
type Backend interface {
	// Name returns the backend's registration name, matched against the
	// identifier following USING in CREATE GENERATOR.
	Name() string

	// CreateGenerator parses schema (the opaque text between a CREATE
	// GENERATOR's backend parentheses) and records whatever backend-private
	// state is needed to model population over the given variables.
	CreateGenerator(generatorID int64, population PopulationInfo, schema string) error

	// DropGenerator releases any backend-private state for generatorID.
	DropGenerator(generatorID int64) error

	// InitializeModels admits n new model replicas, returning their assigned
	// indices.
	InitializeModels(generatorID int64, n int) ([]int, error)

	// DropModels discards the named model replicas.
	DropModels(generatorID int64, modelIDs []int) error

	// AnalyzeModels runs one checkpoint-bounded chunk of training against
	// modelIDs, returning the units of budget actually consumed. Called
	// repeatedly by the ANALYZE driver (spec.md §4.7) until the overall
	// budget is exhausted.
	AnalyzeModels(generatorID int64, modelIDs []int, program AnalyzeProgram, checkpoint AnalyzeBudget) (float64, error)

	// LogpdfJoint returns the log-density of targets conditioned on
	// constraints, for one model, marginalizing unspecified variables.
	// Returns math.Inf(-1) for impossible observations.
	LogpdfJoint(generatorID int64, modelID int, targets, constraints []Target) (float64, error)

	// SimulateJoint draws nSamples realizations of targets' joint
	// distribution given constraints, from one model.
	SimulateJoint(generatorID int64, modelID int, targets []Varno, constraints []Target, nSamples int) ([][]interface{}, error)

	// ColumnDependenceProbability returns a value in [0,1] for one model.
	ColumnDependenceProbability(generatorID int64, modelID int, v0, v1 Varno) (float64, error)

	// ColumnMutualInformation returns a nonnegative number of bits for one
	// model, Monte-Carlo estimated with nSamples draws if approximate.
	ColumnMutualInformation(generatorID int64, modelID int, v0, v1 Varno, constraints []Target, nSamples int) (float64, error)

	// RowSimilarity returns a nonnegative backend-defined metric for one
	// model; contextVarno is 0 (not present) when no IN THE CONTEXT OF
	// clause narrows the comparison.
	RowSimilarity(generatorID int64, modelID int, r0, r1 int64, contextVarno Varno, hasContext bool) (float64, error)

	// RowPredictiveProbability equals LogpdfJoint([(varno, storedValue)],
	// constraints) and is provided as its own method so backends may
	// short-circuit it (spec.md §4.5).
	RowPredictiveProbability(generatorID int64, modelID int, row int64, varno Varno, storedValue interface{}, constraints []Target) (float64, error)

	// ColumnValueMap returns the nominal code↔label mapping for varno, used
	// by the compiler to translate literal values in GIVEN (spec.md §4.5).
	// Returns (nil, false) for non-nominal variables.
	ColumnValueMap(generatorID int64, varno Varno) ([]ValueLabel, bool, error)
}

// PopulationInfo is what a backend needs to know about the population it is
// asked to model, passed to CreateGenerator.
type PopulationInfo struct {
	PopulationID int64
	BaseTable    string
	Variables    []VariableInfo
}

// VariableInfo describes one variable of a population for backend
// consumption.
type VariableInfo struct {
	Varno    Varno
	Column   string
	Stattype string
}

// Registry is a process-wide, name-keyed set of registered backends
// (spec.md §5: "the backend registry ... is process-wide and initialized
// once"). It is safe to read concurrently once registration is complete;
// Register itself is not safe to call concurrently with Lookup.
type Registry struct {
	byName map[string]Backend
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Backend)}
}

// Register adds backend under its own Name(), failing if that name is
// already registered.
func (r *Registry) Register(b Backend) error {
	name := b.Name()
	if _, ok := r.byName[name]; ok {
		return dberr.Internalf("backend already registered: %s", name)
	}
	r.byName[name] = b
	return nil
}

// Lookup resolves a backend name (the identifier following USING in CREATE
// GENERATOR), failing with NoSuchBackend if unregistered.
func (r *Registry) Lookup(name string) (Backend, error) {
	b, ok := r.byName[name]
	if !ok {
		return nil, dberr.NoSuchBackend(name)
	}
	return b, nil
}

// Names returns every registered backend name, for diagnostics.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	return out
}
