package storage

import (
	"context"
	"sync"

	"repdir-backend/internal/model"
)

// MemoryPersister keeps the last saved snapshot in process memory. State
// does not survive a restart.
type MemoryPersister struct {
	mu   sync.Mutex
	dir  model.Directory
	save int
}

// NewMemoryPersister returns a persister seeded with initial, which may be nil.
func NewMemoryPersister(initial model.Directory) *MemoryPersister {
	if initial == nil {
		initial = model.Directory{}
	}
	return &MemoryPersister{dir: initial.Clone()}
}

func (p *MemoryPersister) Load(context.Context) (model.Directory, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dir.Clone(), nil
}

func (p *MemoryPersister) Save(_ context.Context, dir model.Directory) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dir = dir.Clone()
	p.save++
	return nil
}

// Saves returns how many times Save has been called.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.save
}

func (p *MemoryPersister) Close() error { return nil }
