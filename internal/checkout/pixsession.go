package checkout

import (
	"sync"
	"time"

	"github.com/noah-isme/lanches-api/internal/pix"
)

// DefaultPixCountdown is how long a generated payment code stays valid.
const DefaultPixCountdown = 15 * time.Minute

// PixSession is a snapshot of a client's live payment code.
type PixSession struct {
	Payload   pix.Payload
	StartedAt time.Time
	ExpiresAt time.Time
	Expired   bool
}

// Remaining returns the countdown left at now, never negative.
func (s PixSession) Remaining(now time.Time) time.Duration {
	if s.Expired {
		return 0
	}
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

type pixEntry struct {
	PixSession
	timer *time.Timer
}

// PixSessions keeps payment codes in memory, one per client, each with a
// countdown. Expired entries stay visible for one more countdown so a late
// confirmation can be told apart from a missing one.
type PixSessions struct {
	Countdown time.Duration
	Now       func() time.Time

	mu      sync.Mutex
	entries map[string]*pixEntry
}

// NewPixSessions constructs the registry.
func NewPixSessions(countdown time.Duration) *PixSessions {
	if countdown <= 0 {
		countdown = DefaultPixCountdown
	}
	return &PixSessions{Countdown: countdown, Now: time.Now, entries: map[string]*pixEntry{}}
}

func (p *PixSessions) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Start replaces any session for clientID and arms its countdown. onExpire
// runs once, outside the registry lock, when the countdown fires.
func (p *PixSessions) Start(clientID string, payload pix.Payload, onExpire func(clientID string, s PixSession)) PixSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entries == nil {
		p.entries = map[string]*pixEntry{}
	}
	if old, ok := p.entries[clientID]; ok {
		old.timer.Stop()
	}
	now := p.now()
	e := &pixEntry{PixSession: PixSession{Payload: payload, StartedAt: now, ExpiresAt: now.Add(p.Countdown)}}
	e.timer = time.AfterFunc(p.Countdown, func() { p.expire(clientID, e, onExpire) })
	p.entries[clientID] = e
	return e.PixSession
}

func (p *PixSessions) expire(clientID string, e *pixEntry, onExpire func(string, PixSession)) {
	p.mu.Lock()
	if p.entries[clientID] != e || e.Expired {
		p.mu.Unlock()
		return
	}
	e.Expired = true
	e.timer = time.AfterFunc(p.Countdown, func() { p.evict(clientID, e) })
	snap := e.PixSession
	p.mu.Unlock()
	if onExpire != nil {
		onExpire(clientID, snap)
	}
}

func (p *PixSessions) evict(clientID string, e *pixEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entries[clientID] == e {
		delete(p.entries, clientID)
	}
}

// Get returns the client's session.
func (p *PixSessions) Get(clientID string) (PixSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[clientID]
	if !ok {
		return PixSession{}, false
	}
	return e.PixSession, true
}

// Discard stops the countdown and forgets the session.
func (p *PixSessions) Discard(clientID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[clientID]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(p.entries, clientID)
	return true
}

// Len reports the number of tracked sessions.
func (p *PixSessions) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Close stops every countdown.
func (p *PixSessions) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.entries {
		e.timer.Stop()
		delete(p.entries, id)
	}
}
