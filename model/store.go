package model

import (
	"context"
	"sync"
)

/*
Store is an interface to manage a store where trained ensembles can be
kept under caller-chosen names, retrieved, and deleted.

All its methods take a context that may allow cancelling the operation
(thus forcing the return of an error) if the implementation allows it.
*/
type Store interface {
	// Get takes a name and returns the ensemble stored under it, nil
	// if there is none, or an error if the store cannot be queried.
	Get(ctx context.Context, name string) (*Ensemble, error)
	// Put takes a name and an ensemble and stores the ensemble under
	// the name, replacing whatever was stored there before. It returns
	// an error if the ensemble cannot be stored.
	Put(ctx context.Context, name string, e *Ensemble) error
	// Delete takes a name and removes the ensemble stored under it, if
	// any. It returns an error if the removal cannot be performed.
	Delete(ctx context.Context, name string) error
	// Close closes the store. Implementations should free any
	// resources in use and ensure pending changes are applied before
	// returning. It returns an error if that cannot be done.
	Close(ctx context.Context) error
}

type memoryStore struct {
	models map[string]*Ensemble
	lock   sync.RWMutex
}

// NewMemoryStore returns an implementation of Store with the process
// memory space as underlying backend.
func NewMemoryStore() Store {
	return &memoryStore{models: make(map[string]*Ensemble)}
}

func (ms *memoryStore) Get(ctx context.Context, name string) (*Ensemble, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	return ms.models[name], nil
}

func (ms *memoryStore) Put(ctx context.Context, name string, e *Ensemble) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ms.lock.Lock()
	defer ms.lock.Unlock()
	ms.models[name] = e
	return nil
}

func (ms *memoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ms.lock.Lock()
	defer ms.lock.Unlock()
	delete(ms.models, name)
	return nil
}

func (ms *memoryStore) Close(ctx context.Context) error {
	return nil
}
