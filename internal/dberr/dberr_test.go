package dberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(Cancelled()))
	assert.False(t, IsCancelled(NoSuchTable("t")))
	assert.False(t, IsCancelled(fmt.Errorf("plain error")))
}

func TestErrorIsMatchesKindNotMessage(t *testing.T) {
	a := NoSuchTable("foo")
	b := NoSuchTable("bar")
	assert.True(t, errors.Is(a, b), "two NameErrors with different messages should still match Is")
	assert.False(t, errors.Is(a, Cancelled()))
}

func TestBackendPreservesCauseAndIdentity(t *testing.T) {
	cause := errors.New("singular matrix")
	err := Backend("diag_gauss", cause)
	require.Equal(t, "diag_gauss", err.Backend)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "diag_gauss")
}

func TestLexicalAndParseCarryLocation(t *testing.T) {
	loc := Loc{Line: 3, Col: 7}
	err := Lexical(loc, "unterminated string")
	require.True(t, err.HasLoc)
	assert.Equal(t, loc, err.Loc)
	assert.Contains(t, err.Error(), "3:7")

	perr := Parse(loc, "T_IDENT", "T_COMMA")
	assert.Contains(t, perr.Error(), "expected T_IDENT, got T_COMMA")
}

func TestKindStringUnknown(t *testing.T) {
	assert.Equal(t, "Kind(9999)", Kind(9999).String())
}
