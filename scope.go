package guice

import (
	"sync"
)

// currentFunc reports the active instance a scope should cache against for
// the given session. It returns nil while an instance is under
// construction; objects produced during that window are staged under the
// nil slot until endInit promotes them.
type currentFunc func(*Session) any

// memo caches the result of exactly one constructor invocation. The
// sync.Once guarantees at-most-one construction per slot even under
// concurrent resolution; the factory runs outside the cache lock so it may
// recursively resolve further keys in the same scope.
type memo struct {
	once  sync.Once
	value any
	err   error
}

// scopeCache is the two-level instance cache backing the session, UI and
// view scopes: session -> active instance -> binding key -> instance. The
// nil instance slot stages objects produced while the owning instance is
// still being constructed.
type scopeCache struct {
	current currentFunc

	mu       sync.Mutex
	sessions map[*Session]map[any]map[Key]*memo
}

func newScopeCache(current currentFunc) *scopeCache {
	return &scopeCache{
		current:  current,
		sessions: make(map[*Session]map[any]map[Key]*memo),
	}
}

// get returns the cached instance for key in the session's active slot,
// invoking unscoped exactly once to produce it on first use. A factory
// error discards the staging slot and propagates to the caller.
func (c *scopeCache) get(s *Session, key Key, unscoped func() (any, error)) (any, error) {
	m := c.slot(s, key)

	m.once.Do(func() {
		m.value, m.err = unscoped()
	})

	if m.err != nil {
		c.discard(s, key)
		return nil, m.err
	}

	return m.value, nil
}

// slot finds or creates the memo for key under the session's active
// instance, creating intermediate maps as needed.
func (c *scopeCache) slot(s *Session, key Key) *memo {
	c.mu.Lock()
	defer c.mu.Unlock()

	byInstance, ok := c.sessions[s]
	if !ok {
		byInstance = make(map[any]map[Key]*memo)
		c.sessions[s] = byInstance
	}

	instance := c.current(s)
	slots, ok := byInstance[instance]
	if !ok {
		slots = make(map[Key]*memo)
		byInstance[instance] = slots
	}

	m, ok := slots[key]
	if !ok {
		m = &memo{}
		slots[key] = m
	}

	return m
}

// discard drops the failed memo so a later resolution can retry, and
// abandons the staging slot: a construction failure means the pending
// instance will never be promoted.
func (c *scopeCache) discard(s *Session, key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byInstance, ok := c.sessions[s]
	if !ok {
		return
	}

	if slots, ok := byInstance[c.current(s)]; ok {
		delete(slots, key)
	}

	delete(byInstance, nil)
}

// endInit promotes the staging slot to the now-known instance. It must be
// called exactly once per constructed instance, before the current-instance
// accessor starts reporting it; violating that precondition panics.
func (c *scopeCache) endInit(s *Session, instance any) {
	if cur := c.current(s); cur != nil {
		panic(ScopeStateError{Operation: "endInit"})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	byInstance, ok := c.sessions[s]
	if !ok {
		byInstance = make(map[any]map[Key]*memo)
		c.sessions[s] = byInstance
	}

	staged, ok := byInstance[nil]
	if !ok {
		staged = make(map[Key]*memo)
	}

	delete(byInstance, nil)
	byInstance[instance] = staged
}

// rollback discards the staging slot after a failed construction. The
// current-instance accessor must still report nil; violating that
// precondition panics.
func (c *scopeCache) rollback(s *Session) {
	if cur := c.current(s); cur != nil {
		panic(ScopeStateError{Operation: "rollback"})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if byInstance, ok := c.sessions[s]; ok {
		delete(byInstance, nil)
	}
}

// purgeInstance removes the slot keyed by the given instance and returns
// the values that were cached under it, so the caller can dispose them.
func (c *scopeCache) purgeInstance(s *Session, instance any) []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	byInstance, ok := c.sessions[s]
	if !ok {
		return nil
	}

	slots, ok := byInstance[instance]
	if !ok {
		return nil
	}
	delete(byInstance, instance)

	var instances []any
	for _, m := range slots {
		if m.err == nil && m.value != nil {
			instances = append(instances, m.value)
		}
	}

	return instances
}

// purgeSession removes every slot belonging to the session and returns the
// instances that were cached, so the caller can dispose them.
func (c *scopeCache) purgeSession(s *Session) []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	byInstance, ok := c.sessions[s]
	if !ok {
		return nil
	}
	delete(c.sessions, s)

	var instances []any
	for _, slots := range byInstance {
		for _, m := range slots {
			if m.err == nil && m.value != nil {
				instances = append(instances, m.value)
			}
		}
	}

	return instances
}

// instances returns the cached values for the given slot. Used by tests
// and diagnostics; the returned map is a copy.
func (c *scopeCache) instances(s *Session, instance any) map[Key]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	byInstance, ok := c.sessions[s]
	if !ok {
		return nil
	}

	slots, ok := byInstance[instance]
	if !ok {
		return nil
	}

	out := make(map[Key]any, len(slots))
	for k, m := range slots {
		if m.err == nil {
			out[k] = m.value
		}
	}

	return out
}
