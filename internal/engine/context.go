package engine

import "sync"

// Blackboard is the accumulating key/value store a task carries across
// steps. Keys are only ever added or overwritten during a task; a new
// Analyze call swaps in a fresh board.
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
}

func NewBlackboard() *Blackboard {
	return &Blackboard{data: make(map[string]any)}
}

func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	b.data[key] = value
	b.mu.Unlock()
}

// Merge copies every entry of m onto the board.
func (b *Blackboard) Merge(m map[string]any) {
	b.mu.Lock()
	for k, v := range m {
		b.data[k] = v
	}
	b.mu.Unlock()
}

func (b *Blackboard) Get(key string) (any, bool) {
	b.mu.RLock()
	v, ok := b.data[key]
	b.mu.RUnlock()
	return v, ok
}

func (b *Blackboard) GetString(key string) string {
	if v, ok := b.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (b *Blackboard) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// Snapshot returns a copy of the board's contents.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]any, len(b.data))
	for k, v := range b.data {
		out[k] = v
	}
	return out
}
