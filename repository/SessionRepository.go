package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SessionRepository issues the cart-session ids that stand in for a browser's
// local storage origin.
type SessionRepository interface {
	CreateSession(ctx context.Context) (sessionId string, err error)
	CheckSession(ctx context.Context, sessionId string) (bool, error)
	RefreshSession(ctx context.Context, sessionId string) error
	DeleteSession(ctx context.Context, sessionId string) error
}

type SessionRepo struct {
	store KVStore
	ttl   time.Duration
}

func NewSessionRepository(store KVStore, ttl time.Duration) (SessionRepository, error) {
	if store == nil {
		return nil, errors.New("store must be non-nil")
	}
	return &SessionRepo{
		store: store,
		ttl:   ttl,
	}, nil
}

func sessionKey(sessionId string) string {
	return "sess:" + sessionId
}

func (s *SessionRepo) CreateSession(ctx context.Context) (string, error) {
	sessionId := uuid.NewString()
	created := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := s.store.Set(ctx, sessionKey(sessionId), []byte(created), s.ttl); err != nil {
		return "", err
	}
	return sessionId, nil
}

func (s *SessionRepo) CheckSession(ctx context.Context, sessionId string) (bool, error) {
	if _, err := uuid.Parse(sessionId); err != nil {
		return false, nil
	}
	_, found, err := s.store.Get(ctx, sessionKey(sessionId))
	return found, err
}

// RefreshSession slides the expiry; an unknown id is registered again so a
// returning client keeps its cart.
func (s *SessionRepo) RefreshSession(ctx context.Context, sessionId string) error {
	val, found, err := s.store.Get(ctx, sessionKey(sessionId))
	if err != nil {
		return err
	}
	if !found {
		val = []byte(strconv.FormatInt(time.Now().UnixMilli(), 10))
	}
	return s.store.Set(ctx, sessionKey(sessionId), val, s.ttl)
}

func (s *SessionRepo) DeleteSession(ctx context.Context, sessionId string) error {
	return s.store.Delete(ctx, sessionKey(sessionId))
}
