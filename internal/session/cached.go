package session

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/msk-triage-server/internal/interview"
)

// CachedStore layers a fast cache (Redis) over a durable store. Reads hit
// the cache first; writes go to both. Cache failures degrade to the
// durable store instead of failing the request.
type CachedStore struct {
	cache   Store
	durable Store
	log     *logrus.Logger
}

// NewCachedStore wraps durable with cache.
func NewCachedStore(cache, durable Store, logger *logrus.Logger) *CachedStore {
	return &CachedStore{cache: cache, durable: durable, log: logger}
}

// Save writes to the durable store first, then best-effort to the cache.
func (s *CachedStore) Save(ctx context.Context, session interview.Session) error {
	if err := s.durable.Save(ctx, session); err != nil {
		return err
	}
	if err := s.cache.Save(ctx, session); err != nil {
		s.log.WithError(err).WithField("session_id", session.ID).
			Warn("Session cache write failed")
	}
	return nil
}

// Get tries the cache, then the durable store, repopulating the cache on
// a durable hit.
func (s *CachedStore) Get(ctx context.Context, id string) (interview.Session, error) {
	cached, err := s.cache.Get(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.log.WithError(err).WithField("session_id", id).Warn("Session cache read failed")
	}

	stored, err := s.durable.Get(ctx, id)
	if err != nil {
		return interview.Session{}, err
	}
	if err := s.cache.Save(ctx, stored); err != nil {
		s.log.WithError(err).WithField("session_id", id).Warn("Session cache refill failed")
	}
	return stored, nil
}

// List reads from the durable store; the cache's recency view is partial.
func (s *CachedStore) List(ctx context.Context, limit int) ([]string, error) {
	return s.durable.List(ctx, limit)
}

// Delete removes the session from both layers.
func (s *CachedStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.WithError(err).WithField("session_id", id).Warn("Session cache delete failed")
	}
	return s.durable.Delete(ctx, id)
}

// Close closes both layers.
func (s *CachedStore) Close() error {
	cacheErr := s.cache.Close()
	durableErr := s.durable.Close()
	if durableErr != nil {
		return durableErr
	}
	return cacheErr
}
