package browser

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/pagepilot/internal/config"
)

// Allocator options are closures, so these tests count them rather than
// inspect them.
func TestExecOptions(t *testing.T) {
	base := len(execOptions(config.BrowserConfig{Headless: true}))
	assert.Equal(t, len(chromedp.DefaultExecAllocatorOptions)+3, base)

	t.Run("HeadlessDisabled", func(t *testing.T) {
		opts := execOptions(config.BrowserConfig{Headless: false})
		assert.Len(t, opts, base+1)
	})

	t.Run("FullConfig", func(t *testing.T) {
		cfg := config.BrowserConfig{
			Headless:        false,
			ExecPath:        "/usr/bin/chromium",
			UserAgent:       "pagepilot-test",
			IgnoreTLSErrors: true,
			Viewport:        map[string]int{"width": 1280, "height": 800},
			Args:            []string{"--lang=en-US", "mute-audio"},
		}
		assert.Len(t, execOptions(cfg), base+7)
	})

	t.Run("PartialViewportIgnored", func(t *testing.T) {
		opts := execOptions(config.BrowserConfig{Headless: true, Viewport: map[string]int{"width": 1280}})
		assert.Len(t, opts, base)
	})
}
