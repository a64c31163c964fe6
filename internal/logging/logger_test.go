package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetReplacesGlobalLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	L().Info("hello", zap.String("k", "v"))
	S().Infof("n=%d", 3)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "hello", logs.All()[0].Message)
	assert.Equal(t, "n=3", logs.All()[1].Message)
}

func TestBuildSelectsConfigByEnv(t *testing.T) {
	prod, err := build("production")
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zap.DebugLevel))

	dev, err := build("local")
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zap.DebugLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
