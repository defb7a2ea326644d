package relay

import (
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/udisondev/arenarelay/internal/model"
)

// SessionCache хранит выданные при логине session_guid → identity.
// Thread-safe через sync.Map для оптимальной read performance;
// записи живут до своего дедлайна, просроченные выметаются фоновым циклом.
type SessionCache struct {
	entries sync.Map // map[uuid.UUID]*sessionEntry
	ttl     time.Duration
}

type sessionEntry struct {
	mu       sync.Mutex
	userID   model.XPlatformID
	expireAt time.Time
}

// NewSessionCache creates a cache issuing entries with the given TTL.
func NewSessionCache(ttl time.Duration) *SessionCache {
	return &SessionCache{ttl: ttl}
}

// Store сохраняет соответствие session→user с полным TTL.
func (c *SessionCache) Store(session uuid.UUID, userID model.XPlatformID) {
	c.entries.Store(session, &sessionEntry{
		userID:   userID,
		expireAt: time.Now().Add(c.ttl),
	})
}

// Validate проверяет, что session жива и принадлежит userID.
func (c *SessionCache) Validate(session uuid.UUID, userID model.XPlatformID) bool {
	val, ok := c.entries.Load(session)
	if !ok {
		return false
	}
	e := val.(*sessionEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if time.Now().After(e.expireAt) {
		return false
	}
	return e.userID == userID
}

// Remove удаляет сессию.
func (c *SessionCache) Remove(session uuid.UUID) {
	c.entries.Delete(session)
}

// ShortenTTL срезает остаток жизни сессии до d — используется при
// дисконнекте, чтобы быстрый реконнект мог переиспользовать сессию.
func (c *SessionCache) ShortenTTL(session uuid.UUID, d time.Duration) {
	val, ok := c.entries.Load(session)
	if !ok {
		return
	}
	e := val.(*sessionEntry)
	deadline := time.Now().Add(d)
	e.mu.Lock()
	if deadline.Before(e.expireAt) {
		e.expireAt = deadline
	}
	e.mu.Unlock()
}

// CleanExpired выметает просроченные записи. Вызывается периодически.
func (c *SessionCache) CleanExpired() {
	now := time.Now()
	c.entries.Range(func(key, value any) bool {
		e := value.(*sessionEntry)
		e.mu.Lock()
		expired := now.After(e.expireAt)
		e.mu.Unlock()
		if expired {
			c.entries.Delete(key)
		}
		return true
	})
}

// Clear drops every entry. Used on server shutdown.
func (c *SessionCache) Clear() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
}

// Count возвращает количество живых сессий.
func (c *SessionCache) Count() int {
	count := 0
	now := time.Now()
	c.entries.Range(func(_, value any) bool {
		e := value.(*sessionEntry)
		e.mu.Lock()
		if !now.After(e.expireAt) {
			count++
		}
		e.mu.Unlock()
		return true
	})
	return count
}
