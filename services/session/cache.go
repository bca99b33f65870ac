// Package session tracks in-flight email assemblies. An email accepted with
// attachments gets one cache entry; attachment handlers borrow the entry,
// and the handler that drives the countdown to zero removes it.
package session

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/vaulty/mailvault/internal/models"
)

// ErrSessionNotFound indicates an attachment arrived for an email that was
// never registered or whose attachments were all processed already. This is
// a protocol violation by the upstream, not a transient condition.
var ErrSessionNotFound = errors.New("mail session not found")

// View is a read-only snapshot of a session's email and address, safe to use
// for the duration of an upload without holding any cache lock.
type View struct {
	Email   models.Email
	Address models.Address
}

type entry struct {
	mu        sync.Mutex
	email     models.Email
	address   models.Address
	remaining int
}

// Cache is a concurrent registry of sessions keyed by email id. Calls for
// different keys never block each other beyond the brief map access; the
// countdown of one session is guarded by its own mutex.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
	}
}

// Register inserts a session for an email accepted with at least one
// declared attachment. Registering an email without attachments, or the same
// id twice, is a caller bug.
func (c *Cache) Register(id string, email models.Email, address models.Address) {
	n := email.DeclaredAttachments()
	if n < 1 {
		panic(fmt.Sprintf("session %s registered with no declared attachments", id))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[id]; exists {
		panic(fmt.Sprintf("session %s registered twice", id))
	}

	c.entries[id] = &entry{
		email:     email,
		address:   address,
		remaining: n,
	}
}

// Dispatch looks up the session for id, runs op against a snapshot of its
// email and address, then decrements the countdown; when the countdown
// reaches zero the session is removed in the same critical section.
//
// The countdown is decremented and terminal cleanup performed even when op
// fails: a failed attachment must not leak its session slot. Recording the
// failure is the caller's responsibility.
//
// Returns whether this was the terminal attachment, and op's error (or
// ErrSessionNotFound when id is unknown).
func (c *Cache) Dispatch(id string, op func(View) error) (bool, error) {
	c.mu.RLock()
	e := c.entries[id]
	c.mu.RUnlock()

	if e == nil {
		return false, ErrSessionNotFound
	}

	// An entry can be observed between its countdown reaching zero and an
	// over-delivered attachment's lookup; treat it as already gone.
	e.mu.Lock()
	if e.remaining <= 0 {
		e.mu.Unlock()
		return false, ErrSessionNotFound
	}
	// email and address never change after Register, so the snapshot needs
	// no lock of its own.
	view := View{Email: e.email, Address: e.address}
	e.mu.Unlock()

	opErr := op(view)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.remaining <= 0 {
		// Another over-delivered call exhausted the session while op ran.
		return false, ErrSessionNotFound
	}

	e.remaining--
	last := e.remaining == 0
	if last {
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
	}

	return last, opErr
}

// Contains reports whether a session is currently registered for id.
func (c *Cache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Len returns the number of in-flight sessions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
