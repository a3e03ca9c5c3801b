package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	t.Run("default level is info", func(t *testing.T) {
		l, err := New("")
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zap.InfoLevel))
		assert.False(t, l.Core().Enabled(zap.DebugLevel))
	})

	t.Run("explicit level", func(t *testing.T) {
		l, err := New("debug")
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zap.DebugLevel))
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := New("chatty")
		assert.Error(t, err)
	})
}

func TestMust(t *testing.T) {
	assert.Panics(t, func() { Must(New("chatty")) })
	assert.NotPanics(t, func() { Must(New("warn")) })
}

func TestNamed(t *testing.T) {
	assert.NotNil(t, Named(nil, "svc.batch"))
	assert.Equal(t, "svc.batch", Named(zap.NewExample(), "svc.batch").Name())
}
