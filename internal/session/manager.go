package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"centraltaxi/internal/logger"
	"centraltaxi/internal/types"
)

var (
	ErrUnknownOperator  = errors.New("operator not registered")
	ErrInactiveOperator = errors.New("operator is disabled")
)

type Operators interface {
	Operator(ctx context.Context, uid string) (*Operator, error)
}

// Cache keeps started sessions. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, uid string) (*Session, error)
	Set(ctx context.Context, s Session, ttl time.Duration) error
	Delete(ctx context.Context, uid string) error
}

type Revoker interface {
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Manager starts a session at login and clears it at logout.
type Manager struct {
	operators Operators
	cache     Cache
	revoker   Revoker
	ttl       time.Duration
	now       types.Clock
	log       logger.ILogger
}

func NewManager(operators Operators, cache Cache, revoker Revoker, ttl time.Duration, log logger.ILogger) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{operators: operators, cache: cache, revoker: revoker, ttl: ttl, now: time.Now, log: log}
}

func (m *Manager) WithClock(c types.Clock) *Manager {
	m.now = c
	return m
}

func (m *Manager) Start(ctx context.Context, uid string) (Session, error) {
	if uid == "" {
		return Session{}, ErrNoSession
	}
	op, err := m.operators.Operator(ctx, uid)
	if err != nil {
		return Session{}, err
	}
	if !op.Active {
		return Session{}, ErrInactiveOperator
	}
	s := Session{UID: uid, Operator: op.Name, Station: op.Station, StartedAt: m.now()}
	if err := m.cache.Set(ctx, s, m.ttl); err != nil {
		return Session{}, fmt.Errorf("cache session of %s: %w", uid, err)
	}
	m.log.Info("session started", logger.String("uid", uid), logger.String("operator", s.Operator))
	return s, nil
}

// Get returns the session started for uid, or ErrNoSession.
func (m *Manager) Get(ctx context.Context, uid string) (Session, error) {
	s, err := m.cache.Get(ctx, uid)
	if err != nil {
		return Session{}, fmt.Errorf("read session of %s: %w", uid, err)
	}
	if s == nil || !s.Valid() {
		return Session{}, ErrNoSession
	}
	return *s, nil
}

// End drops the cached session and revokes the operator's refresh tokens.
func (m *Manager) End(ctx context.Context, uid string) error {
	if err := m.cache.Delete(ctx, uid); err != nil {
		return fmt.Errorf("drop session of %s: %w", uid, err)
	}
	if m.revoker != nil {
		if err := m.revoker.RevokeRefreshTokens(ctx, uid); err != nil {
			m.log.Warning("refresh tokens not revoked", logger.String("uid", uid), logger.Error(err))
		}
	}
	m.log.Info("session ended", logger.String("uid", uid))
	return nil
}
