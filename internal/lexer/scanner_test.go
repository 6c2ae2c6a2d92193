package lexer

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	sc := New(src)
	var out []Token
	for {
		tok, err := sc.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, tok)
		if tok.Kind == T_EOF {
			break
		}
	}
	return out
}

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	upper := scanAll(t, "SELECT a FROM t")
	lower := scanAll(t, "select a from t")
	assert.Equal(t, kinds(upper), kinds(lower))
	require.NotEmpty(t, upper)
	assert.Equal(t, K_SELECT, upper[0].Kind)
}

func TestStringAndNumericLiterals(t *testing.T) {
	toks := scanAll(t, "'hello' 42 3.14")
	require.Len(t, toks, 4) // string, int, float, EOF
	assert.Equal(t, L_STRING, toks[0].Kind)
	assert.Equal(t, L_INTEGER, toks[1].Kind)
	assert.Equal(t, L_FLOAT, toks[2].Kind)
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := scanAll(t, "SELECT 1 -- trailing comment\nFROM t /* block\ncomment */ WHERE a = 1")
	var sawComment bool
	for _, tk := range toks {
		if tk.Kind == L_STRING && tk.Text == "comment" {
			sawComment = true
		}
	}
	assert.False(t, sawComment)
	assert.Equal(t, K_SELECT, toks[0].Kind)
}

func TestParameterForms(t *testing.T) {
	toks := scanAll(t, "? ?3 :foo")
	require.GreaterOrEqual(t, len(toks), 3)
	assert.Equal(t, L_NUMPAR, toks[0].Kind)
	assert.Equal(t, L_NUMPAR, toks[1].Kind)
	assert.Equal(t, L_NAMPAR, toks[2].Kind)
}

func TestUnterminatedStringIsLexicalError(t *testing.T) {
	sc := New("'unterminated")
	_, err := sc.Next()
	assert.Error(t, err)
}
