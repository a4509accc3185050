package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedClock_StartsAtEpoch(t *testing.T) {
	clock := NewFixedClock()
	assert.Equal(t, Epoch, clock.Peek())
	assert.Equal(t, Epoch, clock.Now())
}

func TestFixedClock_AdvancesBySteps(t *testing.T) {
	clock := NewFixedClock()

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	assert.Equal(t, time.Second, second.Sub(first))
	assert.Equal(t, time.Second, third.Sub(second))
	assert.Equal(t, Epoch.Add(3*time.Second), clock.Peek())
}

func TestFixedClock_Reset(t *testing.T) {
	clock := NewFixedClock()
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, Epoch, clock.Now())
}

func TestFixedClock_ThreadSafe(t *testing.T) {
	clock := NewFixedClock()
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var mu sync.Mutex
	seen := make(map[time.Time]bool)

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				now := clock.Now()
				mu.Lock()
				seen[now] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Every instant handed out exactly once.
	require.Len(t, seen, numGoroutines*callsPerGoroutine)
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("entry")
	assert.Equal(t, "entry-0001", ids.NewID())
	assert.Equal(t, "entry-0002", ids.NewID())

	assert.Equal(t, "id-0001", NewSequentialIDs("").NewID())
}

func TestCapturingLogger(t *testing.T) {
	log, hook := CapturingLogger()
	log.Debug("hello")
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "hello", hook.LastEntry().Message)
}
