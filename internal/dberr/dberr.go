// Package dberr centralizes construction of every error kind the BQL engine
// can raise (spec §7), the way the teacher centralizes error construction in
// moerr: one type, a stable numeric code per kind, and constructors so call
// sites never build an error value by hand.
package dberr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error kinds from spec.md §7.
type Kind uint16

const (
	KindLexical Kind = 100 + iota
	KindParse
	KindName
	KindSchema
	KindTransaction
	KindBackend
	KindCancelled
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindLexical:
		return "LexicalError"
	case KindParse:
		return "ParseError"
	case KindName:
		return "NameError"
	case KindSchema:
		return "SchemaError"
	case KindTransaction:
		return "TransactionError"
	case KindBackend:
		return "BackendError"
	case KindCancelled:
		return "Cancelled"
	case KindInternal:
		return "InternalError"
	default:
		return fmt.Sprintf("Kind(%d)", uint16(k))
	}
}

// Loc is a source position, present when the error originates from lexing,
// parsing, or compiling a BQL phrase.
type Loc struct {
	Line int
	Col  int
}

func (l Loc) String() string { return fmt.Sprintf("%d:%d", l.Line, l.Col) }

// Error is the concrete error type for every kind above. Each error kind in
// spec.md §7 is a value of this type distinguished by Kind, not a distinct Go
// type, so that a single errors.As(...) extracts kind, location, and cause
// uniformly.
type Error struct {
	Kind    Kind
	Message string
	Loc     Loc
	HasLoc  bool
	Backend string // set only for KindBackend
	Cause   error
}

func (e *Error) Error() string {
	if e.HasLoc {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Loc, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target has the same Kind, so callers can write
// errors.Is(err, dberr.Cancelled()) to recognize the one recoverable kind.
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return o.Kind == e.Kind
	}
	return false
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func newAt(kind Kind, loc Loc, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Loc: loc, HasLoc: true}
}

// Lexical wraps an unterminated string/comment, bad escape, or invalid
// numeric literal encountered by the lexer (spec.md §4.1).
func Lexical(loc Loc, reason string) *Error {
	return newAt(KindLexical, loc, "%s", reason)
}

// Parse wraps a syntactic error, localized to the token that triggered it
// (spec.md §4.2).
func Parse(loc Loc, expected, got string) *Error {
	return newAt(KindParse, loc, "expected %s, got %s", expected, got)
}

// NoSuchTable, NoSuchPopulation, NoSuchGenerator, NoSuchVariable, and
// NoSuchModel are the NameError/SchemaError "NoSuchX" family from
// spec.md §4.3.
func NoSuchTable(name string) *Error      { return newf(KindName, "no such table: %s", name) }
func NoSuchPopulation(name string) *Error { return newf(KindName, "no such population: %s", name) }
func NoSuchGenerator(name string) *Error  { return newf(KindName, "no such generator: %s", name) }
func NoSuchVariable(name string) *Error   { return newf(KindName, "no such variable: %s", name) }
func NoSuchColumn(name string) *Error     { return newf(KindName, "no such column: %s", name) }
func NoSuchBackend(name string) *Error    { return newf(KindName, "no such backend: %s", name) }

func NoSuchModel(idx int) *Error {
	return newf(KindSchema, "no such model: %d", idx)
}

func AmbiguousDefaultGenerator(table string) *Error {
	return newf(KindName, "no default generator for table %s and none specified", table)
}

func WrongContext(operator, context string) *Error {
	return newf(KindSchema, "%s is not valid in %s context", operator, context)
}

func IncompatibleStattype(op, c1, c2 string) *Error {
	return newf(KindSchema, "%s: incompatible statistical types between %s and %s", op, c1, c2)
}

func DuplicateVariable(table, column string) *Error {
	return newf(KindSchema, "column %s.%s already has a variable in this population", table, column)
}

func ColumnReferenced(table, column string) *Error {
	return newf(KindSchema, "cannot drop %s.%s: still referenced", table, column)
}

func PopulationReferenced(population, generator string) *Error {
	return newf(KindSchema, "cannot drop population %s: still modeled by generator %s", population, generator)
}

func TableReferenced(table, population string) *Error {
	return newf(KindSchema, "cannot drop table %s: still referenced by population %s", table, population)
}

func NoModels(generator string) *Error {
	return newf(KindSchema, "generator %s has no models", generator)
}

// Transaction wraps nesting ("BEGIN inside a transaction") and
// analyze-in-transaction violations (spec.md §5).
func Transaction(reason string) *Error {
	return newf(KindTransaction, "%s", reason)
}

// Backend wraps an error surfaced by a backend call, preserving the
// backend's identity (spec.md §4.5, §7).
func Backend(name string, cause error) *Error {
	e := newf(KindBackend, "backend %q: %v", name, cause)
	e.Backend = name
	e.Cause = cause
	return e
}

// Cancelled is the only recoverable error kind (spec.md §5, §7): the
// interrupt flag was observed set at a suspension point.
func Cancelled() *Error {
	return newf(KindCancelled, "query cancelled")
}

// Internal wraps a violated invariant that should never happen in a correct
// build.
func Internal(reason string) *Error {
	return newf(KindInternal, "%s", reason)
}

func Internalf(format string, args ...any) *Error {
	return newf(KindInternal, format, args...)
}

// IsCancelled reports whether err is (or wraps) a Cancelled error.
func IsCancelled(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindCancelled
	}
	return false
}
