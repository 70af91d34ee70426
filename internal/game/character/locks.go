package character

import "sync"

// Locks serializes read-modify-write cycles on a single character.
// Distinct characters never contend.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocks returns an empty lock table.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for id and returns its release function.
//
// Postcondition: no other Lock(id) caller proceeds until the returned func runs.
func (l *Locks) Lock(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// Forget drops the lock for id. Callers must not hold it.
func (l *Locks) Forget(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, id)
}
