package resolver

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParentWatcher_SharesAndReleasesDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	pw := newParentWatcher(func(string) {})
	defer pw.close()

	pw.add("one", a)
	pw.add("two", a)
	assert.ElementsMatch(t, []string{a}, pw.watching())

	pw.add("one", b)
	assert.ElementsMatch(t, []string{a, b}, pw.watching())

	pw.remove("two")
	assert.ElementsMatch(t, []string{b}, pw.watching())

	pw.remove("one")
	assert.Empty(t, pw.watching())

	// unknown ids and missing dirs are ignored
	pw.remove("nope")
	pw.add("three", filepath.Join(a, "missing"))
	assert.Empty(t, pw.watching())
}

func TestParentWatcher_DebouncesTriggers(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	calls := map[string]int{}
	pw := newParentWatcher(func(id string) {
		mu.Lock()
		calls[id]++
		mu.Unlock()
	})
	pw.debounce = 100 * time.Millisecond
	defer pw.close()

	pw.add("one", dir)
	for i := range 5 {
		require.NoError(t, os.Mkdir(filepath.Join(dir, "d"+string(rune('a'+i))), 0o755))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls["one"] >= 1
	}, eventTimeout, 20*time.Millisecond)

	// nothing more arrives once the burst is over
	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	assert.Less(t, calls["one"], 5)
	mu.Unlock()
}

func TestParentWatcher_ClosedIgnoresAdds(t *testing.T) {
	pw := newParentWatcher(func(string) {})
	pw.close()
	pw.add("one", t.TempDir())
	assert.Empty(t, pw.watching())
}
