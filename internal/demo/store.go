package demo

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNoTodo is returned for an unknown todo id.
var ErrNoTodo = errors.New("demo: no such todo")

// ErrEmptyTitle rejects a todo without a title.
var ErrEmptyTitle = errors.New("demo: title is required")

// Todo is one item of the list.
type Todo struct {
	ID      int       `json:"id"`
	Title   string    `json:"title"`
	Done    bool      `json:"done"`
	Created time.Time `json:"created"`
}

// Store is an in-memory todo list. Latency delays every read so suspense
// boundaries have something to wait for.
type Store struct {
	Latency time.Duration

	mu    sync.RWMutex
	next  int
	todos map[int]Todo
}

// NewStore returns a store holding titles.
func NewStore(latency time.Duration, titles ...string) *Store {
	s := &Store{Latency: latency, todos: make(map[int]Todo)}
	for _, t := range titles {
		s.Add(t)
	}
	return s
}

func (s *Store) wait(ctx context.Context) error {
	if s.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Add appends a todo.
func (s *Store) Add(title string) (Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Todo{}, ErrEmptyTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	todo := Todo{ID: s.next, Title: title, Created: time.Now().UTC()}
	s.todos[todo.ID] = todo
	return todo, nil
}

// Toggle flips the done flag of id.
func (s *Store) Toggle(id int) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	todo, ok := s.todos[id]
	if !ok {
		return Todo{}, ErrNoTodo
	}
	todo.Done = !todo.Done
	s.todos[id] = todo
	return todo, nil
}

// Get returns the todo id.
func (s *Store) Get(ctx context.Context, id int) (Todo, error) {
	if err := s.wait(ctx); err != nil {
		return Todo{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	todo, ok := s.todos[id]
	if !ok {
		return Todo{}, ErrNoTodo
	}
	return todo, nil
}

// List returns all todos in creation order.
func (s *Store) List(ctx context.Context) ([]Todo, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Todo, 0, len(s.todos))
	for _, t := range s.todos {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
