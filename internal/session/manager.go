// Package session issues and tracks time-boxed client sessions. A session is
// owned by one client for its lifetime and destroyed on explicit sign-out or
// on the expiry tick; both paths share the same revocation.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"campattend/internal/model"
)

// Store holds live sessions server-side so sign-out can revoke tokens before
// their JWT expiry.
type Store interface {
	Put(ctx context.Context, sess *model.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Del(ctx context.Context, id string) error
}

// Manager owns the session lifecycle.
type Manager struct {
	store Store
	ttl   time.Duration

	now  func() time.Time
	tick time.Duration
}

// NewManager creates a manager issuing sessions valid for ttl.
func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Manager{store: store, ttl: ttl, now: time.Now, tick: time.Second}
}

// Issue creates a session for a verified subject. The captured location is
// optional; login proceeds without one.
func (m *Manager) Issue(ctx context.Context, clinicID, role string, profile model.NurseProfile, loc *model.GeoFix) (*model.Session, error) {
	now := m.now()
	sess := &model.Session{
		ID:        uuid.NewString(),
		ClinicID:  clinicID,
		Role:      role,
		Profile:   profile,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
		Location:  loc,
	}
	if err := m.store.Put(ctx, sess, m.ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

// Lookup resolves a live session. An expired one is evicted and reported as
// ErrSessionExpired; an unknown id as ErrNotFound.
func (m *Manager) Lookup(ctx context.Context, id string) (*model.Session, error) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	if sess.Expired(m.now()) {
		_ = m.store.Del(ctx, id)
		return nil, fmt.Errorf("session %s: %w", id, model.ErrSessionExpired)
	}
	return sess, nil
}

// Remaining recomputes the time left from the wall clock, never from a cached
// countdown.
func (m *Manager) Remaining(sess *model.Session) time.Duration {
	return sess.Remaining(m.now())
}

// Revoke destroys a session. Used by explicit sign-out and by expiry.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	return m.store.Del(ctx, id)
}

// Watch ticks once per second and forces sign-out when the session crosses
// zero or disappears. Blocks until then or until ctx is done.
func (m *Manager) Watch(ctx context.Context, id string, onExpire func()) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sess, err := m.store.Get(ctx, id)
			if err != nil {
				continue
			}
			if sess == nil {
				return
			}
			if sess.Expired(m.now()) {
				_ = m.store.Del(ctx, id)
				if onExpire != nil {
					onExpire()
				}
				return
			}
		}
	}
}

// RedisStore keeps sessions as JSON with a native TTL as a backstop to the
// wall-clock expiry check.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store over an existing redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id string) string {
	return "session:" + id
}

// Put stores the session until its window ends.
func (s *RedisStore) Put(ctx context.Context, sess *model.Session, ttl time.Duration) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(sess.ID), raw, ttl).Err()
}

// Get returns the session, or nil when absent.
func (s *RedisStore) Get(ctx context.Context, id string) (*model.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Del removes the session.
func (s *RedisStore) Del(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}
