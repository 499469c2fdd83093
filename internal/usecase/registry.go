package usecase

import (
	"fmt"
	"sync"
	"sync/atomic"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/service"
)

// registrySnapshot is immutable once published.
type registrySnapshot struct {
	order  []service.Strategy
	byID   map[string]service.Strategy
	active service.Strategy
}

// StrategyRegistry is the catalogue of strategies plus the single active one.
// Readers load one snapshot pointer and never block; writers serialise on mu
// and publish a fresh snapshot.
type StrategyRegistry struct {
	mu   sync.Mutex
	snap atomic.Pointer[registrySnapshot]
}

// NewStrategyRegistry registers strategies in order. The first one becomes active.
func NewStrategyRegistry(strategies ...service.Strategy) (*StrategyRegistry, error) {
	r := &StrategyRegistry{}
	r.snap.Store(&registrySnapshot{byID: map[string]service.Strategy{}})
	for _, s := range strategies {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends s. Registering an id twice is an error.
func (r *StrategyRegistry) Register(s service.Strategy) error {
	if s == nil || s.ID() == "" {
		return fmt.Errorf("register strategy: empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	if _, exists := cur.byID[s.ID()]; exists {
		return fmt.Errorf("register strategy: duplicate id %q", s.ID())
	}

	next := &registrySnapshot{
		order:  append(append(make([]service.Strategy, 0, len(cur.order)+1), cur.order...), s),
		byID:   make(map[string]service.Strategy, len(cur.byID)+1),
		active: cur.active,
	}
	for id, st := range cur.byID {
		next.byID[id] = st
	}
	next.byID[s.ID()] = s
	if next.active == nil {
		next.active = s
	}
	r.snap.Store(next)
	return nil
}

// Switch makes id the active strategy.
func (r *StrategyRegistry) Switch(id string) (models.StrategyDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	s, ok := cur.byID[id]
	if !ok {
		return models.StrategyDescriptor{}, &models.UnknownStrategyError{ID: id}
	}
	r.snap.Store(&registrySnapshot{order: cur.order, byID: cur.byID, active: s})
	return service.Describe(s, true), nil
}

// Active returns the active strategy.
func (r *StrategyRegistry) Active() (service.Strategy, error) {
	s := r.snap.Load().active
	if s == nil {
		return nil, models.ErrNoActiveStrategy
	}
	return s, nil
}

// ActiveDescriptor describes the active strategy.
func (r *StrategyRegistry) ActiveDescriptor() (models.StrategyDescriptor, error) {
	s, err := r.Active()
	if err != nil {
		return models.StrategyDescriptor{}, err
	}
	return service.Describe(s, true), nil
}

// Get returns the strategy registered under id.
func (r *StrategyRegistry) Get(id string) (service.Strategy, error) {
	s, ok := r.snap.Load().byID[id]
	if !ok {
		return nil, &models.UnknownStrategyError{ID: id}
	}
	return s, nil
}

// Resolve returns the strategy named by id, or the active one when id is empty.
func (r *StrategyRegistry) Resolve(id string) (service.Strategy, error) {
	if id == "" {
		return r.Active()
	}
	return r.Get(id)
}

// All returns every strategy in registration order.
func (r *StrategyRegistry) All() []service.Strategy {
	cur := r.snap.Load()
	return append([]service.Strategy(nil), cur.order...)
}

// List describes every strategy in registration order. Exactly one is active
// unless the registry is empty.
func (r *StrategyRegistry) List() []models.StrategyDescriptor {
	cur := r.snap.Load()
	out := make([]models.StrategyDescriptor, 0, len(cur.order))
	for _, s := range cur.order {
		out = append(out, service.Describe(s, s == cur.active))
	}
	return out
}
