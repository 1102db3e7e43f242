package dom

import (
	"errors"
	"fmt"
	"sync"
)

// HandleAttr is the attribute the probe stamps on every candidate element.
// Its value is the handle token.
const HandleAttr = "data-pp-handle"

var (
	// ErrNoSnapshot is returned when no analysis has run yet.
	ErrNoSnapshot = errors.New("no page snapshot available")
	// ErrElementNotFound is returned for indices outside the current snapshot.
	ErrElementNotFound = errors.New("element not found")
	// ErrStaleHandle is returned by drivers when a handle no longer resolves
	// to an attached element.
	ErrStaleHandle = errors.New("stale element handle")
)

// Handle refers to a live element stamped during a specific snapshot. It
// carries enough of the snapshot's view of the element to describe it in
// results without another round trip.
type Handle struct {
	Token      string
	Generation int64
	Index      int
	Tag        string
	Type       string
	Label      string
}

// Selector returns a CSS selector that resolves the stamped element.
func (h Handle) Selector() string {
	return fmt.Sprintf(`[%s="%s"]`, HandleAttr, h.Token)
}

// tokenFor formats a stamp token; the probe script uses the same scheme.
func tokenFor(generation int64, n int) string {
	return fmt.Sprintf("%d-%d", generation, n)
}

// arena owns the handles of the current snapshot. Replacing it invalidates
// every handle of the previous generation.
type arena struct {
	mu         sync.RWMutex
	generation int64
	handles    []Handle
}

func (a *arena) next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	return a.generation
}

// replace installs the handles of generation gen. A snapshot that finished
// after a newer one started is discarded.
func (a *arena) replace(gen int64, handles []Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.generation {
		return false
	}
	a.handles = handles
	return true
}

func (a *arena) get(index int) (Handle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if index < 0 || index >= len(a.handles) {
		return Handle{}, false
	}
	return a.handles[index], true
}

func (a *arena) current() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.generation
}
