// Package lexer turns BQL/SQL source text into a token stream (spec.md
// §4.1): keyword-insensitive recognition with identifier fallback, SQL
// literals, the three parameter forms (?, ?N, and :name/@name/$name), and
// the standard SQL comment syntax.
package lexer

// Kind identifies a token's grammatical class. Following spec.md's own
// naming, punctuation tokens are T_*, keywords are K_*, and literal lexemes
// are L_*; the Go constant names below keep that prefix so the grammar in
// spec.md §4.2 reads directly against this file.
type Kind int

const (
	T_EOF Kind = iota

	// Punctuation / operators.
	T_LPAREN
	T_RPAREN
	T_COMMA
	T_SEMI
	T_DOT
	T_STAR
	T_PLUS
	T_MINUS
	T_SLASH
	T_PERCENT
	T_EQ
	T_NE  // <> or !=
	T_LT
	T_LE
	T_GT
	T_GE
	T_CONCAT // ||
	T_AMP    // &
	T_PIPE   // |
	T_CARET  // ^
	T_TILDE  // ~
	T_SHL    // <<
	T_SHR    // >>
	T_QUESTION
	T_COLON

	// Literal lexemes.
	L_NAME
	L_INTEGER
	L_FLOAT
	L_STRING
	L_BLOB
	L_NUMPAR // ? or ?N
	L_NAMPAR // :name, @name, $name

	// Keywords. One constant per BQL/SQL reserved word recognized by the
	// parser; spec.md §4.2 names the grammar productions these feed.
	K_SELECT
	K_FROM
	K_WHERE
	K_GROUP
	K_BY
	K_HAVING
	K_ORDER
	K_ASC
	K_DESC
	K_LIMIT
	K_OFFSET
	K_AS
	K_DISTINCT
	K_ALL
	K_AND
	K_OR
	K_NOT
	K_IN
	K_IS
	K_NULL
	K_LIKE
	K_GLOB
	K_BETWEEN
	K_CASE
	K_WHEN
	K_THEN
	K_ELSE
	K_END
	K_JOIN
	K_INNER
	K_LEFT
	K_RIGHT
	K_FULL
	K_OUTER
	K_CROSS
	K_ON
	K_COLLATE
	K_CAST
	K_TRUE
	K_FALSE
	K_EXISTS

	K_BEGIN
	K_COMMIT
	K_ROLLBACK
	K_TRANSACTION

	K_CREATE
	K_ALTER
	K_DROP
	K_TABLE
	K_IF
	K_EXISTS_ // placeholder to keep IF NOT EXISTS as two tokens; unused directly

	K_POPULATION
	K_GENERATOR
	K_GENERATORS
	K_MODEL
	K_MODELS
	K_FOR
	K_WITH
	K_SCHEMA
	K_USING
	K_GUESS
	K_STATTYPES
	K_IGNORE
	K_LATENT
	K_RENAME
	K_TO
	K_ADD
	K_VARIABLE
	K_SET
	K_DEFAULT

	K_INITIALIZE
	K_ANALYZE
	K_ITERATIONS
	K_SECONDS
	K_MINUTES
	K_CHECKPOINT
	K_VARIABLES
	K_SKIP
	K_ROWS
	K_SUBPROBLEMS
	K_OPTIMIZED
	K_QUIET
	K_WAIT

	K_ESTIMATE
	K_INFER
	K_EXPLICIT
	K_SIMULATE
	K_PREDICTIVE
	K_PROBABILITY
	K_DENSITY
	K_OF
	K_GIVEN
	K_SIMILARITY
	K_CONTEXT
	K_THE
	K_PREDICT
	K_CONFIDENCE
	K_DEPENDENCE
	K_MUTUAL
	K_INFORMATION
	K_CORRELATION
	K_PVALUE
	K_SAMPLES
	K_PAIRWISE
	K_MODELED
	K_VALUE
	K_OF_VARIABLES // internal: "VARIABLES OF"

	K_MODELED_BY // internal composite not actually separate token; kept for clarity in parser

	K_INTO
	K_VALUES
	K_INSERT
	K_UPDATE
	K_DELETE
)

var keywords = map[string]Kind{
	"select": K_SELECT, "from": K_FROM, "where": K_WHERE, "group": K_GROUP,
	"by": K_BY, "having": K_HAVING, "order": K_ORDER, "asc": K_ASC,
	"desc": K_DESC, "limit": K_LIMIT, "offset": K_OFFSET, "as": K_AS,
	"distinct": K_DISTINCT, "all": K_ALL, "and": K_AND, "or": K_OR,
	"not": K_NOT, "in": K_IN, "is": K_IS, "null": K_NULL, "like": K_LIKE,
	"glob": K_GLOB, "between": K_BETWEEN, "case": K_CASE, "when": K_WHEN,
	"then": K_THEN, "else": K_ELSE, "end": K_END, "join": K_JOIN,
	"inner": K_INNER, "left": K_LEFT, "right": K_RIGHT, "full": K_FULL,
	"outer": K_OUTER, "cross": K_CROSS, "on": K_ON, "collate": K_COLLATE,
	"cast": K_CAST, "true": K_TRUE, "false": K_FALSE, "exists": K_EXISTS,

	"begin": K_BEGIN, "commit": K_COMMIT, "rollback": K_ROLLBACK,
	"transaction": K_TRANSACTION,

	"create": K_CREATE, "alter": K_ALTER, "drop": K_DROP, "table": K_TABLE,
	"if": K_IF,

	"population": K_POPULATION, "generator": K_GENERATOR,
	"generators": K_GENERATORS, "model": K_MODEL, "models": K_MODELS,
	"for": K_FOR, "with": K_WITH, "schema": K_SCHEMA, "using": K_USING,
	"guess": K_GUESS, "stattypes": K_STATTYPES, "ignore": K_IGNORE,
	"latent": K_LATENT, "rename": K_RENAME, "to": K_TO, "add": K_ADD,
	"variable": K_VARIABLE, "set": K_SET, "default": K_DEFAULT,

	"initialize": K_INITIALIZE, "analyze": K_ANALYZE,
	"iterations": K_ITERATIONS, "seconds": K_SECONDS, "minutes": K_MINUTES,
	"checkpoint": K_CHECKPOINT, "variables": K_VARIABLES, "skip": K_SKIP,
	"rows": K_ROWS, "subproblems": K_SUBPROBLEMS, "optimized": K_OPTIMIZED,
	"quiet": K_QUIET, "wait": K_WAIT,

	"estimate": K_ESTIMATE, "infer": K_INFER, "explicit": K_EXPLICIT,
	"simulate": K_SIMULATE, "predictive": K_PREDICTIVE,
	"probability": K_PROBABILITY, "density": K_DENSITY, "of": K_OF,
	"given": K_GIVEN, "similarity": K_SIMILARITY, "context": K_CONTEXT,
	"the": K_THE, "predict": K_PREDICT, "confidence": K_CONFIDENCE,
	"dependence": K_DEPENDENCE, "mutual": K_MUTUAL,
	"information": K_INFORMATION, "correlation": K_CORRELATION,
	"pvalue": K_PVALUE, "samples": K_SAMPLES, "pairwise": K_PAIRWISE,
	"modeled": K_MODELED, "value": K_VALUE,

	"into": K_INTO, "values": K_VALUES, "insert": K_INSERT,
	"update": K_UPDATE, "delete": K_DELETE,
}

// KindName renders a Kind for diagnostics (parse-error "expected/got" text).
func KindName(k Kind) string {
	for s, kk := range keywords {
		if kk == k {
			return s
		}
	}
	switch k {
	case T_EOF:
		return "<eof>"
	case L_NAME:
		return "<identifier>"
	case L_INTEGER:
		return "<integer>"
	case L_FLOAT:
		return "<float>"
	case L_STRING:
		return "<string>"
	case L_NUMPAR:
		return "<positional parameter>"
	case L_NAMPAR:
		return "<named parameter>"
	case T_LPAREN:
		return "("
	case T_RPAREN:
		return ")"
	case T_COMMA:
		return ","
	case T_SEMI:
		return ";"
	case T_DOT:
		return "."
	default:
		return "<token>"
	}
}

// Token is one lexeme with its source position (1-based line/col, spec.md
// §4.1/§4.2 use these for ParseError/LexicalError localization).
type Token struct {
	Kind Kind
	Text string // original lexeme text (unescaped for L_STRING/L_NAME)
	Line int
	Col  int

	IntVal   int64
	FloatVal float64

	// ParamIndex carries the resolved 1-based parameter index for
	// L_NUMPAR (spec.md §4.1: "?" assigns successive indices, "?N"
	// specifies one explicitly).
	ParamIndex int
	// ParamName carries the name for L_NAMPAR (":name", "@name", "$name";
	// the leading sigil is preserved in Text, stripped here).
	ParamName string
}
