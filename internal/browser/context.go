// internal/browser/context.go
package browser

import (
	"context"
)

// CombineContext derives a context from primary (which carries the chromedp
// target) that is also canceled when secondary is done. chromedp needs the
// values of primary; the caller's deadline usually lives on secondary.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
