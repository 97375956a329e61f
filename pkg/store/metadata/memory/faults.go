package memory

import (
	"errors"
	"sync"

	"github.com/marmos91/rmshelf/pkg/store/metadata"
)

// ErrInjected is the default error returned by an injected fault.
var ErrInjected = errors.New("injected backend failure")

type fault struct {
	err       error
	remaining int // < 0 means until cleared
}

type faultTable struct {
	mu     sync.Mutex
	faults map[metadata.Op]*fault
}

func newFaultTable() *faultTable {
	return &faultTable{faults: make(map[metadata.Op]*fault)}
}

func (t *faultTable) take(op metadata.Op) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, ok := t.faults[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(t.faults, op)
		}
	}
	return f.err
}

// Inject makes the next times calls of op fail with err (ErrInjected when
// err is nil). times < 0 fails every call until ClearFaults. The latency of
// the failing call is still spent.
func (s *MemoryDocumentStore) Inject(op metadata.Op, err error, times int) {
	if err == nil {
		err = ErrInjected
	}
	if times == 0 {
		return
	}

	s.faults.mu.Lock()
	defer s.faults.mu.Unlock()
	s.faults.faults[op] = &fault{err: err, remaining: times}
}

// ClearFaults removes every injected fault.
func (s *MemoryDocumentStore) ClearFaults() {
	s.faults.mu.Lock()
	defer s.faults.mu.Unlock()
	clear(s.faults.faults)
}
