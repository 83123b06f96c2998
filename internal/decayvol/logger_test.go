package decayvol

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("WARN")
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zapcore.WarnLevel))
	require.False(t, log.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger("chatty")
	require.Error(t, err)
}

func TestNewLogger_DebugOverride(t *testing.T) {
	old := Debug
	Debug = true
	t.Cleanup(func() { Debug = old })

	log, err := NewLogger("error")
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
