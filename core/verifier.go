package core

import "sync"

// ProvenanceVerifier pins one expected caller tuple and compares observed
// tuples against it. Re-pinning replaces the previous tuple.
type ProvenanceVerifier struct {
	mu     sync.RWMutex
	pinned *ProvenanceTuple
}

func NewProvenanceVerifier() *ProvenanceVerifier {
	return &ProvenanceVerifier{}
}

func (v *ProvenanceVerifier) Pin(tuple ProvenanceTuple) {
	if v == nil {
		return
	}
	v.mu.Lock()
	v.pinned = &tuple
	v.mu.Unlock()
}

func (v *ProvenanceVerifier) Verify(observed ProvenanceTuple) bool {
	if v == nil {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.pinned == nil {
		return false
	}
	return v.pinned.Equal(observed)
}

func (v *ProvenanceVerifier) Pinned() (ProvenanceTuple, bool) {
	if v == nil {
		return ProvenanceTuple{}, false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.pinned == nil {
		return ProvenanceTuple{}, false
	}
	return *v.pinned, true
}
