// Package store holds the authoritative in-process collection of projects.
//
// A single goroutine owns the collection. Mutations are sent to it as commands
// and applied with Reduce; every result is published as an immutable Snapshot.
// Readers never see a partially applied command.
package store

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-dashboard-core/errs"
	"github.com/rpupo63/portfolio-dashboard-core/models"
)

// Snapshot is one published state of the collection. Version increases by one
// per applied command. Projects must not be modified.
type Snapshot struct {
	Version  uint64
	Projects []models.Project
}

// Find returns the record with id.
func (s Snapshot) Find(id int64) (models.Project, bool) {
	i := slices.IndexFunc(s.Projects, func(p models.Project) bool { return p.ID == id })
	if i < 0 {
		return models.Project{}, false
	}
	return s.Projects[i], true
}

type request struct {
	cmd   Command
	reply chan Snapshot
}

type Store struct {
	logger zerolog.Logger

	cmds chan request
	quit chan struct{}
	done chan struct{}
	once sync.Once

	current atomic.Pointer[Snapshot]

	mu     sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
	closed bool
}

// New starts the owner goroutine with an empty collection. Call Close to stop it.
func New() *Store {
	s := &Store{
		logger: log.With().Str("component", "store").Logger(),
		cmds:   make(chan request),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		subs:   make(map[int]chan Snapshot),
	}
	s.current.Store(&Snapshot{Projects: []models.Project{}})
	go s.run()
	return s
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case req := <-s.cmds:
			req.reply <- s.apply(req.cmd)
		case <-s.quit:
			s.mu.Lock()
			s.closed = true
			for id, ch := range s.subs {
				close(ch)
				delete(s.subs, id)
			}
			s.mu.Unlock()
			return
		}
	}
}

func (s *Store) apply(cmd Command) Snapshot {
	prev := s.current.Load()
	projects, dropped := reduce(prev.Projects, cmd)
	next := &Snapshot{Version: prev.Version + 1, Projects: projects}
	s.current.Store(next)

	if len(dropped) > 0 {
		s.logger.Warn().Str("command", cmd.Name()).Ints64("ids", dropped).Msg("dropped records with duplicate ids")
	}
	s.logger.Debug().
		Str("command", cmd.Name()).
		Uint64("version", next.Version).
		Int("count", len(projects)).
		Msg("command applied")

	s.publish(*next)
	return *next
}

// publish hands snap to every subscriber without blocking. A subscriber that
// has not consumed the previous snapshot gets it replaced by the newer one.
func (s *Store) publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Dispatch sends cmd to the owner and waits until it is applied. If ctx ends
// after the command was accepted the command still applies.
func (s *Store) Dispatch(ctx context.Context, cmd Command) (Snapshot, error) {
	req := request{cmd: cmd, reply: make(chan Snapshot, 1)}
	select {
	case s.cmds <- req:
	case <-s.done:
		return Snapshot{}, errs.ErrStoreClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Snapshot returns the latest published state without blocking.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Subscribe returns a channel receiving each new snapshot and a function that
// ends the subscription. Slow receivers only see the latest snapshot. The
// channel is closed on unsubscribe or when the store closes.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.nextID++
	id := s.nextID
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

// Close stops the owner goroutine and waits for it to exit. It is safe to call
// more than once.
func (s *Store) Close() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
}
