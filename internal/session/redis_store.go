package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore persists sessions in Redis so they survive a portal restart.
// The whole session is one JSON value under one key per client, so the
// identity and the credential token are written and deleted atomically.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore creates a Redis-backed session store. A zero ttl keeps
// sessions until explicit logout.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("healthsphere.internal.session"),
	}
}

func sessionKey(clientID string) string {
	return fmt.Sprintf("portal:session:%s", clientID)
}

func (s *RedisStore) Set(ctx context.Context, clientID string, sess *Session) error {
	ctx, span := s.tracer.Start(ctx, "session.set")
	defer span.End()

	if err := sess.Validate(); err != nil {
		span.RecordError(err)
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(clientID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, clientID string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.get")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(clientID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// A stored session that no longer decodes (e.g. an unknown role
		// written by an older build) fails closed: treat it as absent.
		span.RecordError(err)
		_ = s.redis.Del(ctx, sessionKey(clientID)).Err()
		return nil, nil
	}
	return &sess, nil
}

func (s *RedisStore) Clear(ctx context.Context, clientID string) error {
	ctx, span := s.tracer.Start(ctx, "session.clear")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(clientID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to clear session: %w", err)
	}
	return nil
}
