package agent

import (
	"io"
	"os"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/observability"
)

// TestMain installs a quiet global logger and fails the package if any test
// leaks a goroutine.
func TestMain(m *testing.M) {
	logConfig := config.NewDefaultConfig().Logger
	logConfig.Level = "debug"
	logConfig.ServiceName = "test-suite"
	observability.Initialize(logConfig, zapcore.AddSync(io.Discard))

	goleak.VerifyTestMain(m, goleak.Cleanup(func(exitCode int) {
		observability.Sync()
		observability.ResetForTest()
		os.Exit(exitCode)
	}))
}
