package scope

import (
	"errors"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAccessor struct {
	grants   atomic.Int32
	releases atomic.Int32
	fail     bool
}

func (c *countingAccessor) Grant(path string) (func() error, error) {
	if c.fail {
		return nil, errors.New("denied")
	}
	c.grants.Add(1)
	return func() error {
		c.releases.Add(1)
		return nil
	}, nil
}

func TestGuard_AcquireIsIdempotent(t *testing.T) {
	acc := &countingAccessor{}
	g := New("/some/dir", acc)

	assert.True(t, g.Acquire())
	assert.True(t, g.Acquire())
	assert.Equal(t, int32(1), acc.grants.Load())
	assert.True(t, g.Held())

	g.Release()
	g.Release()
	assert.Equal(t, int32(1), acc.releases.Load())
	assert.False(t, g.Held())
}

func TestGuard_WithAccess_ReleasesOnlyWhatItOpened(t *testing.T) {
	acc := &countingAccessor{}
	g := New("/some/dir", acc)

	require.NoError(t, g.WithAccess(func() error {
		assert.True(t, g.Held())
		// nested call must not release the outer grant
		return g.WithAccess(func() error {
			assert.True(t, g.Held())
			return nil
		})
	}))
	assert.False(t, g.Held())
	assert.Equal(t, int32(1), acc.grants.Load())
	assert.Equal(t, int32(1), acc.releases.Load())

	// already held before the call: stays held afterwards
	require.True(t, g.Acquire())
	require.NoError(t, g.WithAccess(func() error { return nil }))
	assert.True(t, g.Held())
	g.Release()
}

func TestGuard_WithAccess_ReleasesOnErrorAndPanic(t *testing.T) {
	acc := &countingAccessor{}
	g := New("/some/dir", acc)

	boom := errors.New("boom")
	err := g.WithAccess(func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, g.Held())

	assert.Panics(t, func() {
		_ = g.WithAccess(func() error { panic("bad") })
	})
	assert.False(t, g.Held())
	assert.Equal(t, acc.grants.Load(), acc.releases.Load())
}

func TestGuard_WithAccess_RunsWhenDenied(t *testing.T) {
	g := New("/some/dir", &countingAccessor{fail: true})
	ran := false
	require.NoError(t, g.WithAccess(func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

// gatedAccessor blocks Grant until the gate opens
type gatedAccessor struct {
	countingAccessor
	entered chan struct{}
	gate    chan struct{}
}

func (a *gatedAccessor) Grant(path string) (func() error, error) {
	close(a.entered)
	<-a.gate
	return a.countingAccessor.Grant(path)
}

func TestGuard_WithAccess_ConcurrentCallersShareGrant(t *testing.T) {
	acc := &gatedAccessor{entered: make(chan struct{}), gate: make(chan struct{})}
	g := New("/some/dir", acc)

	bodyA := make(chan struct{})
	doneB := make(chan struct{})
	heldInA := make(chan bool, 1)

	go func() {
		_ = g.WithAccess(func() error {
			close(bodyA)
			<-doneB
			heldInA <- g.Held()
			return nil
		})
	}()

	<-acc.entered
	go func() {
		defer close(doneB)
		_ = g.WithAccess(func() error { return nil })
	}()
	// let the second caller reach the guard while the grant is still pending
	time.Sleep(20 * time.Millisecond)
	close(acc.gate)

	<-bodyA
	select {
	case held := <-heldInA:
		assert.True(t, held, "grant released while the opener was still running")
	case <-time.After(5 * time.Second):
		t.Fatal("opener never finished")
	}

	assert.Eventually(t, func() bool { return !g.Held() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), acc.grants.Load())
	assert.Equal(t, int32(1), acc.releases.Load())
}

func TestGuard_WithAccess_LastCallerReleases(t *testing.T) {
	acc := &countingAccessor{}
	g := New("/some/dir", acc)

	innerDone := make(chan struct{})
	outerRunning := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_ = g.WithAccess(func() error {
			close(outerRunning)
			<-innerDone
			return nil
		})
	}()

	<-outerRunning
	// the opener is still inside; a second caller finishing first must leave the grant alone
	require.NoError(t, g.WithAccess(func() error { return nil }))
	assert.True(t, g.Held())
	close(innerDone)

	<-finished
	assert.False(t, g.Held())
	assert.Equal(t, int32(1), acc.grants.Load())
	assert.Equal(t, int32(1), acc.releases.Load())
}

func TestDo_ReturnsValue(t *testing.T) {
	g := New("/x", &countingAccessor{})
	v, err := Do(g, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDirHandle_OpensRealDirectory(t *testing.T) {
	dir := t.TempDir()
	g := New(dir, nil)
	assert.True(t, g.Acquire())
	g.Release()

	missing := New(filepath.Join(dir, "missing"), nil)
	assert.False(t, missing.Acquire())
}

func TestAdopt_TakesOwnership(t *testing.T) {
	var released atomic.Int32
	g := Adopt("/x", func() error {
		released.Add(1)
		return nil
	})
	assert.True(t, g.Held())
	g.Release()
	g.Release()
	assert.Equal(t, int32(1), released.Load())
}

func TestGuard_CleanupReleasesAbandonedGrant(t *testing.T) {
	var released atomic.Int32
	func() {
		_ = Adopt("/abandoned", func() error {
			released.Add(1)
			return nil
		})
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		return released.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
