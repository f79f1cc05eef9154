// Package session keeps editing sessions for the HTTP API.
//
// A session owns one pipeline graph and serializes every edit through its own mutex, so
// a single editor changes the graph at a time while other sessions proceed in parallel.
// Sessions expire after a sliding TTL: each edit pushes the expiry forward.
//
// Two stores are provided:
//   - [MemoryStore]: process-local, the default for `flowcraft serve`
//   - [FileStore]: write-through to JSON files, so sessions survive a restart
//
// # Usage
//
//	store := session.NewMemoryStore()
//	sess := session.New("orders", nil, session.DefaultTTL)
//	_ = store.Set(ctx, sess)
//
//	err := sess.Do(func(g *flow.Graph) error {
//	    _, err := g.Create(flow.KindFilter, "", flow.Position{X: 250})
//	    return err
//	})
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/flowio"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New(errors.ErrCodeSessionNotFound, "session not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New(errors.ErrCodeSessionExpired, "session expired")
)

// DefaultTTL is the default idle lifetime of a session.
const DefaultTTL = 24 * time.Hour

// Session is one editing session. ID, Name and CreatedAt never change after New;
// everything else is guarded by the session's mutex.
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mu        sync.Mutex
	ttl       time.Duration
	updatedAt time.Time
	expiresAt time.Time
	graph     *flow.Graph
}

// New creates a session with a random id. A nil graph starts an empty canvas.
func New(name string, g *flow.Graph, ttl time.Duration) *Session {
	if g == nil {
		g = flow.New()
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		ttl:       ttl,
		updatedAt: now,
		expiresAt: now.Add(ttl),
		graph:     g,
	}
}

// IsExpired reports whether the session has expired.
func (s *Session) IsExpired() bool {
	return s.expiredAt(time.Now())
}

func (s *Session) expiredAt(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.expiresAt)
}

// Do runs fn with exclusive access to the session's graph and renews the TTL.
// The graph must not be retained after fn returns.
func (s *Session) Do(fn func(g *flow.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(s.graph)
	now := time.Now()
	s.updatedAt = now
	s.expiresAt = now.Add(s.ttl)
	return err
}

// View runs fn with exclusive access to the graph without renewing the TTL.
func (s *Session) View(fn func(g *flow.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.graph)
}

// Snapshot is the serializable state of a session.
type Snapshot struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	ExpiresAt time.Time    `json:"expires_at"`
	TTL       Duration     `json:"ttl"`
	Graph     flowio.Graph `json:"graph"`
}

// Snapshot copies the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.updatedAt,
		ExpiresAt: s.expiresAt,
		TTL:       Duration(s.ttl),
		Graph:     flowio.FromGraph(s.graph),
	}
}

// Restore rebuilds a session from a snapshot.
func Restore(snap Snapshot) (*Session, error) {
	g, err := snap.Graph.ToGraph()
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(snap.TTL)
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Session{
		ID:        snap.ID,
		Name:      snap.Name,
		CreatedAt: snap.CreatedAt,
		ttl:       ttl,
		updatedAt: snap.UpdatedAt,
		expiresAt: snap.ExpiresAt,
		graph:     g,
	}, nil
}

// Duration is a time.Duration that encodes as a Go duration string.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
