package telemetry_test

import (
	"context"
	"testing"

	"github.com/mealplan/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerProvider_Disabled(t *testing.T) {
	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestLoggerProvider_ZapCore_Disabled(t *testing.T) {
	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.Config{}, zap.NewNop())
	require.NoError(t, err)

	core := lp.ZapCore("mealplan", zapcore.InfoLevel)
	for _, lvl := range []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.ErrorLevel} {
		assert.False(t, core.Enabled(lvl))
	}
}

func TestLoggerProvider_ZapCore_NilProvider(t *testing.T) {
	var lp *telemetry.LoggerProvider
	core := lp.ZapCore("mealplan", zapcore.InfoLevel)

	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}
