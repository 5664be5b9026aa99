package service

import "sync"

// keyedMutex serializes operations per user so the scheduler tick and the
// inbound update handler can never interleave transitions for the same
// user, while different users proceed independently.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the mutex for userID and returns its unlock function.
func (k *keyedMutex) Lock(userID int64) func() {
	k.mu.Lock()
	m, ok := k.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		k.locks[userID] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
