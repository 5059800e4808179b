// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package statestore provides a typed, observable value holder.

A [Store] keeps the current value of one state slice and notifies subscribers
on every change. Subscriptions have an explicit lifecycle: [Store.Subscribe]
returns the function that ends it. Listeners run synchronously in the order
they subscribed and must not call back into the same store.
*/
package statestore

import "sync"

// Store holds a value of type T and fans changes out to subscribers.
type Store[T any] struct {
	mu        sync.RWMutex
	value     T
	version   uint64
	nextID    uint64
	listeners map[uint64]func(T)
	order     []uint64
}

// New returns a store initialised with value.
func New[T any](value T) *Store[T] {
	return &Store[T]{value: value, listeners: map[uint64]func(T){}}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Version increments on every Set or Update.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Set replaces the value and notifies subscribers.
func (s *Store[T]) Set(value T) {
	s.Update(func(T) T { return value })
}

// Update applies fn to the current value atomically and notifies subscribers
// with the result.
func (s *Store[T]) Update(fn func(T) T) {
	s.mu.Lock()
	s.value = fn(s.value)
	s.version++
	value := s.value
	listeners := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(value)
	}
}

// Subscribe registers listener and returns the function that removes it.
// The listener is not called with the current value; use [Store.Get].
func (s *Store[T]) Subscribe(listener func(T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, existing := range s.order {
				if existing == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Subscribers reports how many listeners are registered.
func (s *Store[T]) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}
