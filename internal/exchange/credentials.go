package exchange

import "sync/atomic"

// Session holds the two opaque tokens attached to every outbound control message.
type Session struct {
	CST           string
	SecurityToken string
}

// Credentials is a concurrency-safe holder refreshed externally on a schedule.
type Credentials struct {
	v atomic.Pointer[Session]
}

// NewCredentials seeds the holder.
func NewCredentials(s Session) *Credentials {
	c := &Credentials{}
	c.Set(s)
	return c
}

// Set replaces the current session tokens.
func (c *Credentials) Set(s Session) { c.v.Store(&s) }

// Get returns the current session tokens.
func (c *Credentials) Get() Session {
	if c == nil {
		return Session{}
	}
	if s := c.v.Load(); s != nil {
		return *s
	}
	return Session{}
}
