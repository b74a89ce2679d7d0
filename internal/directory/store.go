package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"repdir-backend/internal/model"
)

// Persister is the durable copy of the directory. Save receives the full
// directory and replaces whatever was stored before.
type Persister interface {
	Load(ctx context.Context) (model.Directory, error)
	Save(ctx context.Context, dir model.Directory) error
}

// Publisher receives a ChangeEvent after each persisted mutation.
type Publisher interface {
	Publish(ctx context.Context, evt model.ChangeEvent) error
}

// Identifier locates one representative. An empty Locality means a global
// name search across localities in sorted key order.
type Identifier struct {
	Locality string
	Name     string
}

// Options configures a Store.
type Options struct {
	// AllowGlobalLookup lets Update and Remove run without a locality.
	AllowGlobalLookup bool
	Publisher         Publisher
	Logger            *zap.Logger
}

// Store owns the locality to representatives mapping. Mutations are
// serialized: each one is applied to a copy, persisted, and only then made
// visible, so a failed save leaves the current state untouched.
type Store struct {
	mu        sync.RWMutex
	dir       model.Directory
	persister Persister
	publisher Publisher
	logger    *zap.Logger
	global    bool
	gen       uint64
	now       func() time.Time
}

// Open loads the persisted directory and returns a Store over it.
func Open(ctx context.Context, p Persister, opts Options) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("directory: persister is nil")
	}
	dir, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory: load: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Store{
		dir:       dir.Normalize(),
		persister: p,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		global:    opts.AllowGlobalLookup,
		now:       time.Now,
	}
	s.logger.Info("directory loaded",
		zap.Int("localities", len(s.dir)),
		zap.Int("representatives", s.dir.Count()))
	return s, nil
}

// AllowsGlobalLookup reports whether Update and Remove accept an empty locality.
func (s *Store) AllowsGlobalLookup() bool { return s.global }

// ListAll returns a copy of the full directory.
func (s *Store) ListAll() model.Directory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir.Clone()
}

// Generation counts committed mutations. It changes whenever the directory
// returned by ListAll would change.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Snapshot returns a copy of the directory together with its generation,
// read under one lock.
func (s *Store) Snapshot() (model.Directory, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir.Clone(), s.gen
}

// ListByLocality returns the representatives of one locality.
func (s *Store) ListByLocality(locality string) ([]model.Representative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reps := s.dir[model.LocalityKey(locality)]
	if len(reps) == 0 {
		return nil, notFound(msgLocalityNotFound)
	}
	out := make([]model.Representative, len(reps))
	copy(out, reps)
	return out, nil
}

// Add appends rep to locality, creating the locality when needed.
func (s *Store) Add(ctx context.Context, locality string, rep model.Representative) error {
	rep, err := ValidateAdd(locality, rep)
	if err != nil {
		return err
	}
	loc := model.LocalityKey(locality)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.dir[loc] {
		if model.SameName(r.Name, rep.Name) {
			return conflict(rep.Name)
		}
	}

	next := s.dir.Clone()
	next[loc] = append(next[loc], rep)
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.emit(ctx, model.ChangeEvent{Action: model.ActionAdded, Locality: loc, Name: rep.Name, Representative: &rep})
	return nil
}

// Update replaces the fields of the representative named by id. The entry
// keeps its position within the locality.
func (s *Store) Update(ctx context.Context, id Identifier, rep model.Representative) error {
	rep, err := ValidateUpdate(id, rep, s.global)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loc, idx, ok := s.find(id)
	if !ok {
		return notFound(msgRepNotFound)
	}
	for i, r := range s.dir[loc] {
		if i != idx && model.SameName(r.Name, rep.Name) {
			return conflict(rep.Name)
		}
	}

	prev := s.dir[loc][idx].Name
	next := s.dir.Clone()
	next[loc][idx] = rep
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	evt := model.ChangeEvent{Action: model.ActionUpdated, Locality: loc, Name: rep.Name, Representative: &rep}
	if prev != rep.Name {
		evt.PreviousName = prev
	}
	s.emit(ctx, evt)
	return nil
}

// Remove deletes the representative named by id and drops the locality
// once it is empty.
func (s *Store) Remove(ctx context.Context, id Identifier) error {
	if err := ValidateRemove(id, s.global); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loc, idx, ok := s.find(id)
	if !ok {
		return notFound(msgRepNotFound)
	}

	name := s.dir[loc][idx].Name
	next := s.dir.Clone()
	reps := append(next[loc][:idx], next[loc][idx+1:]...)
	if len(reps) == 0 {
		delete(next, loc)
	} else {
		next[loc] = reps
	}
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.emit(ctx, model.ChangeEvent{Action: model.ActionDeleted, Locality: loc, Name: name})
	return nil
}

// find resolves id to a locality key and index. Callers hold s.mu.
func (s *Store) find(id Identifier) (string, int, bool) {
	locs := []string{model.LocalityKey(id.Locality)}
	if locs[0] == "" {
		locs = s.dir.Localities()
	}
	for _, loc := range locs {
		for i, r := range s.dir[loc] {
			if model.SameName(r.Name, id.Name) {
				return loc, i, true
			}
		}
	}
	return "", 0, false
}

// commit persists next and makes it current. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next model.Directory) error {
	if err := s.persister.Save(ctx, next); err != nil {
		s.logger.Error("directory save failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	s.dir = next
	s.gen++
	return nil
}

func (s *Store) emit(ctx context.Context, evt model.ChangeEvent) {
	s.logger.Info("directory changed",
		zap.String("action", string(evt.Action)),
		zap.String("locality", evt.Locality),
		zap.String("name", evt.Name))
	if s.publisher == nil {
		return
	}
	evt.Timestamp = s.now().UTC().Format(time.RFC3339Nano)
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("change event not published", zap.Error(err))
	}
}
