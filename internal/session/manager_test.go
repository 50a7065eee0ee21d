package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"centraltaxi/internal/logger"
)

type memOperators map[string]*Operator

func (m memOperators) Operator(_ context.Context, uid string) (*Operator, error) {
	if op, ok := m[uid]; ok {
		return op, nil
	}
	return nil, ErrUnknownOperator
}

type memCache struct {
	sessions map[string]Session
	ttl      time.Duration
}

func (c *memCache) Get(_ context.Context, uid string) (*Session, error) {
	s, ok := c.sessions[uid]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *memCache) Set(_ context.Context, s Session, ttl time.Duration) error {
	c.sessions[s.UID] = s
	c.ttl = ttl
	return nil
}

func (c *memCache) Delete(_ context.Context, uid string) error {
	delete(c.sessions, uid)
	return nil
}

type stubRevoker struct {
	revoked []string
	err     error
}

func (r *stubRevoker) RevokeRefreshTokens(_ context.Context, uid string) error {
	r.revoked = append(r.revoked, uid)
	return r.err
}

func newTestManager() (*Manager, *memCache, *stubRevoker) {
	ops := memOperators{
		"u1": {Name: "maria", Station: "Central", Active: true},
		"u2": {Name: "jorge", Active: false},
	}
	cache := &memCache{sessions: map[string]Session{}}
	rev := &stubRevoker{}
	at := time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)
	m := NewManager(ops, cache, rev, time.Hour, logger.Nop()).WithClock(func() time.Time { return at })
	return m, cache, rev
}

func TestSessionLifecycle(t *testing.T) {
	m, cache, rev := newTestManager()
	ctx := context.Background()

	if _, err := m.Get(ctx, "u1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession before start, got %v", err)
	}
	s, err := m.Start(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Operator != "maria" || s.Station != "Central" || !s.Valid() || cache.ttl != time.Hour {
		t.Fatalf("unexpected session %+v", s)
	}
	got, err := m.Get(ctx, "u1")
	if err != nil || got != s {
		t.Fatalf("get: %+v %v", got, err)
	}

	rev.err = errors.New("auth down")
	if err := m.End(ctx, "u1"); err != nil {
		t.Fatalf("end must not fail on revoke errors: %v", err)
	}
	if len(rev.revoked) != 1 {
		t.Fatal("tokens not revoked")
	}
	if _, err := m.Get(ctx, "u1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after end, got %v", err)
	}
}

func TestStartRejectsUnknownAndInactive(t *testing.T) {
	m, cache, _ := newTestManager()
	ctx := context.Background()
	if _, err := m.Start(ctx, "nobody"); !errors.Is(err, ErrUnknownOperator) {
		t.Fatalf("expected ErrUnknownOperator, got %v", err)
	}
	if _, err := m.Start(ctx, "u2"); !errors.Is(err, ErrInactiveOperator) {
		t.Fatalf("expected ErrInactiveOperator, got %v", err)
	}
	if _, err := m.Start(ctx, ""); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if len(cache.sessions) != 0 {
		t.Fatal("rejected starts must not cache")
	}
}
