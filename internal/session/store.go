package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Operator is a console user as stored in operadores/{uid}.
type Operator struct {
	Name    string `firestore:"nombre"`
	Station string `firestore:"base"`
	Active  bool   `firestore:"activo"`
}

type FirestoreOperators struct {
	fs *firestore.Client
}

func NewFirestoreOperators(fs *firestore.Client) *FirestoreOperators {
	return &FirestoreOperators{fs: fs}
}

func (s *FirestoreOperators) Operator(ctx context.Context, uid string) (*Operator, error) {
	snap, err := s.fs.Collection("operadores").Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrUnknownOperator
	}
	if err != nil {
		return nil, err
	}
	var op Operator
	if err := snap.DataTo(&op); err != nil {
		return nil, err
	}
	return &op, nil
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func cacheKey(uid string) string {
	return fmt.Sprintf("centraltaxi:session:%s", uid)
}

func (c *RedisCache) Get(ctx context.Context, uid string) (*Session, error) {
	data, err := c.client.Get(ctx, cacheKey(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	return &s, json.Unmarshal(data, &s)
}

func (c *RedisCache) Set(ctx context.Context, s Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(s.UID), data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, uid string) error {
	return c.client.Del(ctx, cacheKey(uid)).Err()
}
