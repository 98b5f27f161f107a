package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/zipmap/internal/interaction"
)

// DefaultSessionTTL is how long an idle session survives.
const DefaultSessionTTL = 30 * time.Minute

// Manager owns the live sessions.
type Manager struct {
	opts Options
	ttl  time.Duration
	log  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a manager creating sessions with opts. A non-positive
// ttl takes DefaultSessionTTL.
func NewManager(opts Options, ttl time.Duration) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		opts:     opts,
		ttl:      ttl,
		log:      zap.L().With(zap.String("component", "dashboard")),
		sessions: make(map[string]*Session),
	}
}

// Create starts a session. The response holds the initial layer filters.
func (m *Manager) Create(vp interaction.Viewport) (*Session, Response) {
	opts := m.opts
	if vp.Width > 0 && vp.Height > 0 {
		opts.Viewport = vp
	}
	s := NewSession(uuid.New().String(), opts)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.log.Debug("session created", zap.String("session", s.ID()), zap.Int("sessions", n))
	resp, _ := s.Sidebar()
	return s, resp
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete closes and forgets the session with id.
func (m *Manager) Delete(id string) (Response, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return Response{}, false
	}
	return s.Close(), true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// it removed.
func (m *Manager) Sweep() int {
	cutoff := m.opts.Now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		m.log.Info("expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes all sessions.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
