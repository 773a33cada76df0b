// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stash

import (
	"context"
	"fmt"
	"sync"
)

// Counter reports the number of stashed entities of one entity type.
type Counter interface {
	// Kind returns the stash settings of the entity type.
	Kind() Kind

	// CountName returns the render context name of the count. An empty
	// name means the entity type does not contribute a count.
	CountName() string

	// Count returns the number of stashed entities in the session.
	Count(Session) (int, error)
}

// Registry is the list of entity types whose stash counts are added to the
// render context. It is populated at startup and read on every request.
type Registry struct {
	sync.RWMutex
	counters []Counter
}

// NewRegistry returns a new Registry containing the provided counters.
func NewRegistry(counters ...Counter) *Registry {
	r := &Registry{
		counters: make([]Counter, 0, len(counters)),
	}
	for _, c := range counters {
		r.Register(c)
	}
	return r
}

// Register adds a counter to the registry. Counters without a count name are
// kept but never contribute a value.
//
// A warning is logged when an already registered counter uses the same count
// name or the same session key. The first would hide one of the counts and
// the second would mix two entity types in one stash list.
func (r *Registry) Register(c Counter) {
	r.Lock()
	defer r.Unlock()

	for _, msg := range r.conflicts(c) {
		log.Warnf("Register: %v", msg)
	}
	r.counters = append(r.counters, c)

	if c.CountName() == "" {
		log.Debugf("Registered stash counter %v without a count name",
			c.Kind().Name)
		return
	}
	log.Debugf("Registered stash counter %v", c.CountName())
}

// conflicts returns a description of every registered counter that shares
// the count name or the session key of c.
//
// This function must be called with the lock held.
func (r *Registry) conflicts(c Counter) []string {
	var (
		name = c.CountName()
		kind = c.Kind()
		msgs []string
	)
	for _, rc := range r.counters {
		rk := rc.Kind()
		if name != "" && rc.CountName() == name {
			msgs = append(msgs, fmt.Sprintf("count name %v is used by "+
				"both %v and %v", name, rk.Name, kind.Name))
		}
		if rk.SessionKey == kind.SessionKey {
			msgs = append(msgs, fmt.Sprintf("session key %v is used by "+
				"both %v and %v", kind.SessionKey, rk.Name, kind.Name))
		}
	}
	return msgs
}

// Counts returns the stash count of every registered entity type that has a
// count name, keyed by count name.
//
// A count that is unavailable is left out of the returned map. The first
// error encountered is returned along with the counts that were available.
func (r *Registry) Counts(s Session) (map[string]int, error) {
	r.RLock()
	defer r.RUnlock()

	var (
		counts   = make(map[string]int, len(r.counters))
		firstErr error
	)
	for _, c := range r.counters {
		name := c.CountName()
		if name == "" {
			continue
		}
		n, err := c.Count(s)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		counts[name] = n
	}

	return counts, firstErr
}

// ContextValues returns the values that are merged into the render context
// of the request. Every entity type with a count name contributes its stash
// count. Unavailable counts are logged and reported as zero.
//
// ContextValues does not modify the session.
func (r *Registry) ContextValues(req Request) map[string]interface{} {
	counts, err := r.Counts(req.Session())
	if err != nil {
		log.Warnf("ContextValues: %v", err)
	}

	r.RLock()
	defer r.RUnlock()

	values := make(map[string]interface{}, len(r.counters))
	for _, c := range r.counters {
		name := c.CountName()
		if name == "" {
			continue
		}
		// Missing entries are unavailable counts.
		values[name] = counts[name]
	}

	return values
}

// contextKey is the type of the context key of the render values.
type contextKey struct{}

// NewContext returns a copy of the parent context that carries the render
// values.
func NewContext(parent context.Context, values map[string]interface{}) context.Context {
	return context.WithValue(parent, contextKey{}, values)
}

// FromContext returns the render values carried by the context, if any.
func FromContext(ctx context.Context) (map[string]interface{}, bool) {
	values, ok := ctx.Value(contextKey{}).(map[string]interface{})
	return values, ok
}
