package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beautivra/storefront/internal/storage"
	"golang.org/x/sync/singleflight"
)

// ErrUnavailable means the session's bag could not be read from storage.
var ErrUnavailable = errors.New("cart storage unavailable")

const loadTimeout = 2 * time.Second

// Registry hands out one Store per browser session. Stores are loaded
// lazily from the session's scoped storage and evicted once idle.
type Registry struct {
	storage storage.Storage
	now     func() time.Time

	mu    sync.Mutex
	carts map[string]*entry
	sfg   singleflight.Group // one Load per session at a time

	stopSweep chan struct{}
	wg        sync.WaitGroup
}

type entry struct {
	store    *Store
	lastSeen time.Time
}

func NewRegistry(s storage.Storage) *Registry {
	return &Registry{
		storage:   s,
		now:       time.Now,
		carts:     make(map[string]*entry),
		stopSweep: make(chan struct{}),
	}
}

// Storage returns the storage scoped to sessionID.
func (r *Registry) Storage(sessionID string) storage.Storage {
	return storage.Scoped(r.storage, sessionID)
}

// Get returns the session's store, loading it on first use. The load is
// detached from the caller's cancellation so an aborted request cannot
// leave an empty bag behind. A failed read is returned and nothing is
// cached.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	if store := r.lookup(sessionID); store != nil {
		return store, nil
	}

	v, err, _ := r.sfg.Do(sessionID, func() (interface{}, error) {
		if store := r.lookup(sessionID); store != nil {
			return store, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		store, err := load(loadCtx, r.Storage(sessionID))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		r.mu.Lock()
		r.carts[sessionID] = &entry{store: store, lastSeen: r.now()}
		r.mu.Unlock()
		return store, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (r *Registry) lookup(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.carts[sessionID]
	if !ok {
		return nil
	}
	e.lastSeen = r.now()
	return e.store
}

// Sweep evicts stores idle for longer than maxIdle and returns how many
// were dropped. Their items stay in storage.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	evicted := 0
	for id, e := range r.carts {
		if e.lastSeen.Before(cutoff) {
			delete(r.carts, id)
			evicted++
		}
	}
	return evicted
}

// StartSweeper runs Sweep every interval until Close.
func (r *Registry) StartSweeper(interval, maxIdle time.Duration) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Sweep(maxIdle)
			case <-r.stopSweep:
				return
			}
		}
	}()
}

func (r *Registry) Close() {
	close(r.stopSweep)
	r.wg.Wait()
}
