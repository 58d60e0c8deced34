package services

import (
	"sync"
	"time"

	"github.com/streamraffle/go-raffle/models"
)

// SessionRegistry is the in-memory tenant session store. Sessions are
// process-lifetime only and are never expired automatically; deletion is an
// explicit administrative operation.
type SessionRegistry struct {
	logger   models.Logger
	mu       sync.RWMutex
	sessions map[string]models.TenantSession
}

func NewSessionRegistry(logger models.Logger) *SessionRegistry {
	return &SessionRegistry{
		logger:   logger,
		sessions: make(map[string]models.TenantSession),
	}
}

// Put inserts or replaces the session for its channel id. The creation
// timestamp of an existing session is preserved across updates.
func (s *SessionRegistry) Put(session models.TenantSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, found := s.sessions[session.ChannelID]; found {
		session.CreatedAt = existing.CreatedAt
	} else if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	s.sessions[session.ChannelID] = session
}

func (s *SessionRegistry) Get(channelID string) (models.TenantSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, found := s.sessions[channelID]
	return session, found
}

func (s *SessionRegistry) Delete(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.sessions[channelID]; !found {
		return false
	}
	delete(s.sessions, channelID)
	return true
}

// FindBySubscription scans for the session bound to a webhook subscription.
// Used on revocation, which is rare enough that a linear scan is fine.
func (s *SessionRegistry) FindBySubscription(subscriptionID string) (models.TenantSession, bool) {
	if len(subscriptionID) == 0 {
		return models.TenantSession{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.SubscriptionID == subscriptionID {
			return session, true
		}
	}
	return models.TenantSession{}, false
}

func (s *SessionRegistry) List() []models.TenantSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]models.TenantSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}
