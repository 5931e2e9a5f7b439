package services

import (
	"context"
	"sync"
)

type LoadState int

const (
	Idle LoadState = iota
	Loading
	Ready
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case LoadFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Loader tracks one fetch through Idle, Loading and then Ready or LoadFailed.
// It can be loaded again from Ready or LoadFailed. A failed load keeps the
// last good value. Overlapping loads are not ordered: the one that finishes
// last wins.
type Loader[T any] struct {
	fetch func(context.Context) (T, error)

	mu        sync.Mutex
	state     LoadState
	value     T
	err       error
	listeners map[int]func(LoadState)
	nextID    int
}

func NewLoader[T any](fetch func(context.Context) (T, error)) *Loader[T] {
	return &Loader[T]{fetch: fetch, listeners: map[int]func(LoadState){}}
}

// Load runs the fetch and returns its result.
func (l *Loader[T]) Load(ctx context.Context) (T, error) {
	l.transition(Loading, nil, nil)

	value, err := l.fetch(ctx)
	if err != nil {
		l.transition(LoadFailed, nil, err)
		return value, err
	}
	l.transition(Ready, &value, nil)
	return value, nil
}

func (l *Loader[T]) transition(state LoadState, value *T, err error) {
	l.mu.Lock()
	l.state = state
	l.err = err
	if value != nil {
		l.value = *value
	}
	listeners := make([]func(LoadState), 0, len(l.listeners))
	for _, fn := range l.listeners {
		listeners = append(listeners, fn)
	}
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (l *Loader[T]) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Value returns the last successfully loaded value.
func (l *Loader[T]) Value() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Err returns the error of the last load, nil unless the state is LoadFailed.
func (l *Loader[T]) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// OnChange registers fn for every state transition and returns a function
// that unregisters it.
func (l *Loader[T]) OnChange(fn func(LoadState)) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.listeners[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}
