package whatsapp

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGateSerializesSameKey(t *testing.T) {
	gate := NewGate(time.Hour)

	var inside int32
	var overlaps int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gate.RunExclusive("chat-1", func() {
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.AddInt32(&overlaps, 1)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
			})
		}()
	}
	wg.Wait()
	require.Zero(t, atomic.LoadInt32(&overlaps), "two holders inside the same key")
}

func TestGateIndependentKeysRunConcurrently(t *testing.T) {
	gate := NewGate(time.Hour)

	aHeld := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go gate.RunExclusive("chat-a", func() {
		close(aHeld)
		<-release
	})

	<-aHeld
	go func() {
		gate.RunExclusive("chat-b", func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent key blocked behind a held lock")
	}
	close(release)
}

func TestGateSweepEvictsIdleLocks(t *testing.T) {
	gate := NewGate(10 * time.Millisecond)
	gate.RunExclusive("chat-1", func() {})
	gate.RunExclusive("chat-2", func() {})
	require.Equal(t, 2, gate.Len())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 2, gate.Sweep())
	require.Equal(t, 0, gate.Len())
}

func TestGateSweepSkipsHeldLocks(t *testing.T) {
	gate := NewGate(0)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		gate.RunExclusive("busy", func() {
			close(held)
			<-release
		})
		close(done)
	}()

	<-held
	require.Equal(t, 0, gate.Sweep())
	require.Equal(t, 1, gate.Len())
	close(release)
	<-done

	// Released and instantly stale with a zero TTL.
	require.Equal(t, 1, gate.Sweep())
}
