package logutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetGlobalLoggerNeverNil(t *testing.T) {
	assert.NotNil(t, GetGlobalLogger())
}

func TestSetGlobalLoggerRoundTrip(t *testing.T) {
	orig := GetGlobalLogger()
	defer SetGlobalLogger(orig)

	l := zap.NewExample()
	SetGlobalLogger(l)
	assert.Same(t, l, GetGlobalLogger())
}

func TestConnectionAndPhraseLoggerAttachFields(t *testing.T) {
	base := zap.NewNop()
	connLogger := ConnectionLogger(base, 42)
	phraseLogger := PhraseLogger(connLogger, "simulate")
	require.NotNil(t, phraseLogger)
}

func TestNewFileLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewFileLogger(FileConfig{Path: t.TempDir() + "/out.log", Level: "not-a-level"})
	assert.Error(t, err)
}

func TestNewFileLoggerDefaultsMaxSize(t *testing.T) {
	l, err := NewFileLogger(FileConfig{Path: t.TempDir() + "/out.log", Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, l)
}
