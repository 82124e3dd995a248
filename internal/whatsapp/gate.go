package whatsapp

import (
	"sync"
	"time"
)

type convLock struct {
	mu       sync.Mutex
	holders  int
	lastUsed time.Time
}

// Gate serializes work per conversation key. Callers for the same key run
// one at a time in arrival order; distinct keys run concurrently. Idle locks
// are reclaimed by Sweep.
type Gate struct {
	mu      sync.Mutex
	locks   map[string]*convLock
	idleTTL time.Duration
}

func NewGate(idleTTL time.Duration) *Gate {
	return &Gate{
		locks:   make(map[string]*convLock),
		idleTTL: idleTTL,
	}
}

// RunExclusive runs fn while holding the key's lock.
func (g *Gate) RunExclusive(key string, fn func()) {
	g.mu.Lock()
	l, ok := g.locks[key]
	if !ok {
		l = &convLock{}
		g.locks[key] = l
	}
	l.holders++
	g.mu.Unlock()

	l.mu.Lock()
	fn()
	l.mu.Unlock()

	g.mu.Lock()
	l.holders--
	l.lastUsed = time.Now()
	g.mu.Unlock()
}

// Sweep removes locks with no holders that have been idle longer than the
// gate's TTL, returning how many were evicted. A lock acquired between the
// idle check and removal is impossible: both happen under the map lock and
// holders is only changed under it.
func (g *Gate) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	cutoff := time.Now().Add(-g.idleTTL)
	evicted := 0
	for key, l := range g.locks {
		if l.holders == 0 && l.lastUsed.Before(cutoff) {
			delete(g.locks, key)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of tracked conversation locks.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}
